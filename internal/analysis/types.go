package analysis

// FocusItem is one unit of delegated work: a feature to look for in one file.
// CodePath must name a file entry of the request's manifest.
type FocusItem struct {
	FocusFeature string `json:"focus_feature"`
	CodePath     string `json:"code_path"`
}

// FeatureLocation is a function inside one analysed file. Lines is "start-end".
type FeatureLocation struct {
	FeatureDescription string `json:"feature_description"`
	Function           string `json:"function"`
	Lines              string `json:"lines"`
}

// SubAnalysisResult is what one sub-analysis produces for one focus item.
type SubAnalysisResult struct {
	CodePath        string            `json:"code_path"`
	FeatureAnalysis []FeatureLocation `json:"feature_analysis"`
}

type ImplementationLocation struct {
	FilePath string `json:"file_path"`
	Function string `json:"function"`
	Lines    string `json:"lines"`
}

type Feature struct {
	FeatureDescription      string                   `json:"feature_description"`
	ImplementationLocations []ImplementationLocation `json:"implementation_location"`
}

// AnalysisReport is the terminal artifact of one analysis request.
type AnalysisReport struct {
	FeatureAnalysis         []Feature `json:"feature_analysis"`
	ExecutionPlanSuggestion string    `json:"execution_plan_suggestion"`
}

// FilePaths returns every distinct file path referenced by the report, in
// first-seen order.
func (r *AnalysisReport) FilePaths() []string {
	if r == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, f := range r.FeatureAnalysis {
		for _, loc := range f.ImplementationLocations {
			if _, ok := seen[loc.FilePath]; ok {
				continue
			}
			seen[loc.FilePath] = struct{}{}
			out = append(out, loc.FilePath)
		}
	}
	return out
}

type subOutput struct {
	FeatureAnalysis []FeatureLocation `json:"feature_analysis"`
}

type delegateInput struct {
	FocusFileList []FocusItem `json:"focus_file_list"`
}
