package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pagewatch/internal/watch"
)

func TestHeuristic_ShouldPromote_EmptyBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.True(t, h.ShouldPromote(watch.FetchResponse{StatusCode: 200}))
}

func TestHeuristic_ShouldPromote_SPAMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := watch.FetchResponse{
		StatusCode: 200,
		Body:       []byte(`<div id="__next"></div>`),
	}
	require.True(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_ScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	resp := watch.FetchResponse{
		StatusCode: 200,
		Body:       []byte(`<html><script>var a=1;</script><p>t</p></html>`),
	}
	require.True(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_StaticTable(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	rows := strings.Repeat("<tr><td>Artist</td><td>Link</td></tr>", 100)
	resp := watch.FetchResponse{
		StatusCode: 200,
		Body:       []byte("<html><body><table>" + rows + "</table></body></html>"),
	}
	require.False(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_DisabledForNon200(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := watch.FetchResponse{
		StatusCode: 404,
		Body:       []byte("not found"),
	}
	require.False(t, h.ShouldPromote(resp))
}

func TestScriptDensityUnclosedScript(t *testing.T) {
	t.Parallel()

	require.True(t, scriptDensityHigh([]byte(`<p>x</p><script>never closed`)))
	require.False(t, scriptDensityHigh([]byte(`<p>plain</p>`)))
}
