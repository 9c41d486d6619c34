package models

// FindFilesResponse is the payload returned for one find-files query: the
// pattern that was searched, the total number of matching paths, whether the
// result set was cut off by the request limit, and one result group per
// repository that matched.
//
// The producer guarantees that TotalCount equals the sum of len(Files) over
// Results and that no two groups share the same (Repository, Revision) pair.
// An empty Results slice implies TotalCount == 0 and LimitHit == false.
type FindFilesResponse struct {
	Pattern    string            `json:"pattern"`
	TotalCount int               `json:"totalCount"`
	LimitHit   bool              `json:"limitHit"`
	Results    []FindFilesResult `json:"results"`
}

// NewFindFilesResponse returns an empty response for the given pattern.
// Results is initialized so the field serializes as [] rather than null.
func NewFindFilesResponse(pattern string) *FindFilesResponse {
	return &FindFilesResponse{
		Pattern: pattern,
		Results: []FindFilesResult{},
	}
}

// FindFilesResult groups the matching file paths found in one repository at
// one revision.
type FindFilesResult struct {
	Repository string   `json:"repository"`
	Revision   string   `json:"revision"`
	Files      []string `json:"files"`
}

// NewFindFilesResult constructs a result group. All three fields are supplied
// together; a nil files slice is normalized to an empty one.
func NewFindFilesResult(repository, revision string, files []string) FindFilesResult {
	if files == nil {
		files = []string{}
	}
	return FindFilesResult{
		Repository: repository,
		Revision:   revision,
		Files:      files,
	}
}
