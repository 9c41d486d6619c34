package models

// TreeEntry is one entry of a repository tree listing.
type TreeEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
	Mode string `json:"mode"`
	Size int64  `json:"size"`
	SHA  string `json:"sha"`
}

// TreeResponse lists the entries of one tree at a revision.
type TreeResponse struct {
	Repository string      `json:"repository"`
	Revision   string      `json:"revision"`
	Path       string      `json:"path"`
	Entries    []TreeEntry `json:"entries"`
}
