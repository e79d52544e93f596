package dto

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type MarkRequest struct {
	Video  string  `json:"video" validate:"required"`
	Offset float64 `json:"offset" validate:"gte=0"`
	FPS    float64 `json:"fps" validate:"gte=0"`
}

type ExportRequest struct {
	Video string   `json:"video" validate:"required"`
	Pre   *float64 `json:"pre,omitempty" validate:"omitempty,gte=0"`
	Post  *float64 `json:"post,omitempty" validate:"omitempty,gte=0"`
}
