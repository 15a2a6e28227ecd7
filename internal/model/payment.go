package model

import (
	"time"
)

type PaymentMethod string

const (
	PaymentStripe   PaymentMethod = "stripe"
	PaymentPaypal   PaymentMethod = "paypal"
	PaymentMpesa    PaymentMethod = "m_pesa"
	PaymentMidtrans PaymentMethod = "midtrans"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// swagger:model Payment
type Payment struct {
	BaseModel
	OrderID       string        `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	StudentID     uint          `gorm:"index;not null" json:"student_id"`
	CourseID      uint          `gorm:"index;not null" json:"course_id"`
	Course        *Course       `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Amount        float64       `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method        PaymentMethod `gorm:"size:20;default:'midtrans'" json:"payment_method"`
	Status        PaymentStatus `gorm:"size:20;default:'pending';index" json:"status"`
	TransactionID string        `gorm:"size:200" json:"transaction_id"`
	RedirectURL   string        `gorm:"size:500" json:"redirect_url,omitempty"`
	PaymentDate   *time.Time    `json:"payment_date"`
}

func (Payment) TableName() string {
	return "payments"
}
