package models

// FileResponse carries the content of one file at a revision. Binary blobs
// are transported base64-encoded with Encoding set accordingly.
type FileResponse struct {
	Repository string `json:"repository"`
	Revision   string `json:"revision"`
	Path       string `json:"path"`
	SHA        string `json:"sha"`
	Size       int64  `json:"size"`
	Binary     bool   `json:"binary"`
	Encoding   string `json:"encoding"` // "utf-8" or "base64"
	Content    string `json:"content"`
}
