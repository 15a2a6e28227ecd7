package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		// 学生/通用 授权接口
		a.registerLearnerRoutes(authGroup, c)

		// 教师相关接口
		a.registerInstructorRoutes(authGroup, c)

		// 私信、通知、讨论
		a.registerCommunicationRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)

		public.GET("/categories", c.course.ListCategories)
		public.GET("/courses", c.course.ListCourses)
		// 课程详情可选认证，教师可预览自己的草稿
		public.GET("/courses/:id", middleware.OptionalAuth(cfg.JWT.Secret), c.course.GetCourse)
		public.GET("/courses/:id/modules", c.content.ListModules)
		public.GET("/courses/:id/ratings", c.engagement.ListRatings)
		public.GET("/certificates/:certificateId", c.enrollment.VerifyCertificate)

		// 支付网关服务端回调，依靠签名校验
		public.POST("/payments/notification", c.payment.Notification)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/auth/profile", c.auth.GetProfile)
	rg.POST("/auth/refresh", c.auth.RefreshToken)
	rg.PUT("/users/profile", c.user.UpdateProfile)
	rg.POST("/users/avatar", c.user.UploadAvatar)

	// 选课与进度
	rg.POST("/courses/:id/enroll", c.enrollment.Enroll)
	rg.POST("/courses/:id/checkout", c.payment.Checkout)
	rg.GET("/courses/:id/progress", c.enrollment.GetCourseProgress)
	rg.GET("/enrollments", c.enrollment.ListMyEnrollments)
	rg.GET("/progress", c.enrollment.ListProgress)
	rg.GET("/certificates", c.enrollment.ListCertificates)
	rg.GET("/payments", c.payment.ListPayments)

	// 课时
	rg.GET("/lessons/:id", c.content.GetLesson)
	rg.POST("/lessons/:id/progress", c.enrollment.RecordLessonProgress)
	rg.GET("/lessons/:id/progress", c.enrollment.GetLessonProgress)
	rg.GET("/lessons/:id/notes", c.engagement.GetNote)
	rg.PUT("/lessons/:id/notes", c.engagement.SaveNote)
	rg.GET("/lessons/:id/quiz", c.quiz.GetLessonQuiz)

	// 测验
	rg.GET("/courses/:id/quizzes", c.quiz.ListCourseQuizzes)
	rg.GET("/quizzes/:id", c.quiz.GetQuiz)
	rg.POST("/quizzes/:id/attempts", c.quiz.StartAttempt)
	rg.GET("/quizzes/:id/attempts", c.quiz.ListAttempts)
	rg.POST("/attempts/:id/submit", c.quiz.SubmitAttempt)
	rg.GET("/attempts/:id", c.quiz.GetAttempt)

	// 作业
	rg.GET("/courses/:id/assignments", c.assignment.ListCourseAssignments)
	rg.GET("/courses/:id/gradebook", c.assignment.Gradebook)
	rg.POST("/assignments/upload", c.assignment.UploadSubmissionFile)
	rg.POST("/assignments/:id/submissions", c.assignment.Submit)

	// 评价、心愿单
	rg.POST("/courses/:id/ratings", c.engagement.RateCourse)
	rg.PUT("/courses/:id/ratings", c.engagement.UpdateRating)
	rg.GET("/wishlist", c.engagement.Wishlist)
	rg.POST("/wishlist/:id", c.engagement.AddToWishlist)
	rg.DELETE("/wishlist/:id", c.engagement.RemoveFromWishlist)

	// 学习路径
	rg.GET("/learning-paths", c.learningPath.List)
	rg.GET("/learning-paths/:id", c.learningPath.Get)
	rg.POST("/learning-paths/:id/enroll", c.learningPath.Enroll)

	// 激励
	rg.GET("/leaderboard", c.gamification.Leaderboard)
	rg.GET("/badges", c.gamification.ListBadges)
	rg.GET("/badges/mine", c.gamification.MyBadges)

	rg.GET("/dashboard/student", c.dashboard.StudentDashboard)
}

func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	// 课程归属在服务层校验，这里只拦截学生
	instructor := rg.Group("")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.GET("/instructor/courses", c.course.ListMyCourses)
		instructor.POST("/courses", c.course.CreateCourse)
		instructor.PUT("/courses/:id", c.course.UpdateCourse)
		instructor.DELETE("/courses/:id", c.course.DeleteCourse)
		instructor.POST("/courses/:id/thumbnail", c.course.UploadThumbnail)
		instructor.GET("/courses/:id/students", c.enrollment.ListCourseStudents)
		instructor.DELETE("/courses/:id/students/:studentId", c.enrollment.Unenroll)
		instructor.POST("/courses/:id/generate-quiz", c.quiz.GenerateQuiz)

		instructor.POST("/courses/:id/modules", c.content.CreateModule)
		instructor.PUT("/modules/:id", c.content.UpdateModule)
		instructor.DELETE("/modules/:id", c.content.DeleteModule)
		instructor.POST("/modules/:id/lessons", c.content.CreateLesson)
		instructor.PUT("/lessons/:id", c.content.UpdateLesson)
		instructor.DELETE("/lessons/:id", c.content.DeleteLesson)
		instructor.POST("/lessons/:id/video", c.content.UploadVideo)
		instructor.POST("/lessons/:id/attachment", c.content.UploadAttachment)

		instructor.POST("/quizzes", c.quiz.CreateQuiz)
		instructor.PUT("/quizzes/:id", c.quiz.UpdateQuiz)
		instructor.DELETE("/quizzes/:id", c.quiz.DeleteQuiz)
		instructor.POST("/quizzes/:id/questions", c.quiz.AddQuestion)
		instructor.DELETE("/questions/:id", c.quiz.DeleteQuestion)
		instructor.POST("/responses/:id/grade", c.quiz.GradeResponse)

		instructor.POST("/assignments", c.assignment.CreateAssignment)
		instructor.PUT("/assignments/:id", c.assignment.UpdateAssignment)
		instructor.DELETE("/assignments/:id", c.assignment.DeleteAssignment)
		instructor.GET("/assignments/:id/submissions", c.assignment.ListSubmissions)
		instructor.POST("/submissions/:id/grade", c.assignment.Grade)

		instructor.POST("/courses/:id/announcements", c.communication.Announce)

		instructor.POST("/learning-paths", c.learningPath.Create)
		instructor.DELETE("/learning-paths/:id", c.learningPath.Delete)

		instructor.GET("/dashboard/instructor", c.dashboard.InstructorDashboard)
		instructor.GET("/dashboard/instructor/stats", c.dashboard.InstructorStats)
	}
}

func (a *App) registerCommunicationRoutes(rg *gin.RouterGroup, c *controllers) {
	// 浏览器 WebSocket 无法携带请求头，AuthMiddleware 同时接受 ?token=
	rg.GET("/ws", c.notification.Connect)

	rg.POST("/messages", c.communication.SendMessage)
	rg.GET("/messages", c.communication.Inbox)
	rg.GET("/messages/unread-count", c.communication.UnreadMessages)
	rg.GET("/messages/conversations/:userId", c.communication.Conversation)
	rg.GET("/courses/:id/announcements", c.communication.ListAnnouncements)

	rg.GET("/notifications", c.notification.ListNotifications)
	rg.GET("/notifications/unread-count", c.notification.UnreadCount)
	rg.PATCH("/notifications/read-all", c.notification.MarkAllRead)
	rg.PATCH("/notifications/:id/read", c.notification.MarkRead)

	rg.GET("/courses/:id/discussions", c.discussion.ListThreads)
	rg.POST("/courses/:id/discussions", c.discussion.CreateThread)
	rg.GET("/discussions/:id", c.discussion.GetThread)
	rg.POST("/discussions/:id/posts", c.discussion.Reply)
	rg.PATCH("/discussions/:id/flags", c.discussion.SetFlags)
	rg.POST("/posts/:id/like", c.discussion.ToggleLike)
	rg.POST("/posts/:id/solution", c.discussion.MarkSolution)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.ListUsers)
		admin.PATCH("/users/:id/active", c.user.SetActive)

		admin.POST("/categories", c.course.CreateCategory)
		admin.PUT("/categories/:id", c.course.UpdateCategory)
		admin.DELETE("/categories/:id", c.course.DeleteCategory)

		admin.POST("/badges", c.gamification.CreateBadge)
		admin.DELETE("/badges/:id", c.gamification.DeleteBadge)
	}
}
