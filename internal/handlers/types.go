package handlers

import "provisioner/internal/models"

type RunListResponse struct {
	Runs  []models.Run `json:"runs"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// FFmpegResponse reports path as null when ffmpeg is missing.
type FFmpegResponse struct {
	FFmpegFound bool    `json:"ffmpeg_found"`
	Path        *string `json:"path"`
	VersionLine string  `json:"version_line,omitempty"`
}
