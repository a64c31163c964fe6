package prompt

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesAndTrims(t *testing.T) {
	tpl, err := Parse("t", "\n  Problem: {{ .problem_description }}\nFiles: {{ .code_repo_structure }}  \n\n")
	require.NoError(t, err)

	out, err := Render(tpl, map[string]string{
		VarProblemDescription: "add a health check",
		VarCodeRepoStructure:  "a.js",
	})
	require.NoError(t, err)
	assert.Equal(t, "Problem: add a health check\nFiles: a.js", out)
}

func TestRender_UnknownVariablesRenderEmpty(t *testing.T) {
	tpl, err := Parse("t", "[{{ .missing }}]")
	require.NoError(t, err)

	out, err := Render(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRender_DoesNotEscape(t *testing.T) {
	tpl, err := Parse("t", "{{ .code_content }}")
	require.NoError(t, err)

	out, err := Render(tpl, map[string]string{VarCodeContent: `1:  if (a < b && c > "d") {}`})
	require.NoError(t, err)
	assert.Equal(t, `1:  if (a < b && c > "d") {}`, out)
}

func TestRender_Idempotent(t *testing.T) {
	reg, err := LoadDefault("")
	require.NoError(t, err)
	vars := map[string]string{
		VarProblemDescription: "add a health check",
		VarFocusFeature:       "health check",
		VarCodeRepoStructure:  "- a.js",
		VarCodePath:           "a.js",
		VarCodeContent:        "1:  console.log('hi')",
	}
	first, err := reg.Render(AnalysisSub, vars)
	require.NoError(t, err)
	second, err := reg.Render(AnalysisSub, vars)
	require.NoError(t, err)
	assert.Equal(t, []byte(first), []byte(second))
}

func TestLoadDefault_EmbeddedTemplates(t *testing.T) {
	reg, err := LoadDefault("")
	require.NoError(t, err)

	top, err := reg.Render(Analysis, map[string]string{
		VarProblemDescription: "PROBLEM-X",
		VarCodeRepoStructure:  "STRUCTURE-Y",
	})
	require.NoError(t, err)
	assert.Contains(t, top, "PROBLEM-X")
	assert.Contains(t, top, "STRUCTURE-Y")
	assert.Contains(t, top, "code_file_analysis")

	sub, err := reg.Render(AnalysisSub, map[string]string{VarCodePath: "b/b.js"})
	require.NoError(t, err)
	assert.Contains(t, sub, "b/b.js")
	assert.NotContains(t, sub, "<no value>")
}

func TestLoad_MissingTemplateIsFatal(t *testing.T) {
	_, err := Load(fstest.MapFS{
		"analysis.tmpl": {Data: []byte("{{ .problem_description }}")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), AnalysisSub)
}

func TestLoad_MalformedTemplateIsFatal(t *testing.T) {
	_, err := Load(fstest.MapFS{
		"analysis.tmpl":     {Data: []byte("{{ .problem_description ")},
		"analysis_sub.tmpl": {Data: []byte("ok")},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse analysis"))
}

func TestRegistry_UnknownName(t *testing.T) {
	reg, err := LoadDefault("")
	require.NoError(t, err)
	_, err = reg.Render("runner", nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}
