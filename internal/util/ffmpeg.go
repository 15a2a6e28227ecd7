package util

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoInfo ffprobe 结果中课时关心的部分
type VideoInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
	Size     int64   `json:"size"`
}

// DurationSeconds 课时时长按整秒向上取整
func (v *VideoInfo) DurationSeconds() int {
	return int(math.Ceil(v.Duration))
}

type VideoProber interface {
	Probe(path string) (*VideoInfo, error)
}

// FFProbe 调用系统 ffprobe，未安装时 Probe 返回错误
type FFProbe struct{}

func (FFProbe) Probe(path string) (*VideoInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("probe video: %w", err)
	}
	return parseProbeOutput(out, stat.Size())
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

func parseProbeOutput(raw string, statSize int64) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode probe output: %w", err)
	}

	info := &VideoInfo{Format: "unknown", Size: statSize}
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.Width, info.Height = s.Width, s.Height
			break
		}
	}
	// 时长缺失时保持 0，由调用方保留原课时时长
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	if n, err := strconv.ParseInt(out.Format.Size, 10, 64); err == nil {
		info.Size = n
	}
	if name, _, _ := strings.Cut(out.Format.FormatName, ","); name != "" {
		info.Format = name
	}
	return info, nil
}
