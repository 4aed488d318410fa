package insight

// ExtractRequest for POST /extract (insightface-rest wire format)
type ExtractRequest struct {
	Images           ImageData `json:"images"`
	ExtractEmbedding bool      `json:"extract_embedding"`
	Threshold        float64   `json:"threshold,omitempty"`
}

type ImageData struct {
	Data []string `json:"data"` // base64 encoded images
}

// ExtractResponse from POST /extract
type ExtractResponse struct {
	Data []ImageResult `json:"data"`
}

type ImageResult struct {
	Faces []Face `json:"faces"`
}

type Face struct {
	Prob float64   `json:"prob"`           // detection probability
	Bbox []int     `json:"bbox"`           // [x1, y1, x2, y2]
	Vec  []float32 `json:"vec,omitempty"`  // embedding, when requested
	Size int       `json:"size,omitempty"` // face crop edge length
}
