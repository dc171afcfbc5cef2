package insight_test

import (
	"strings"
	"testing"

	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	plain := `{"englishSummary":"ok","doctorQuestions":["a","b"]}`

	t.Run("fenced payload with language tag equals unwrapped payload", func(t *testing.T) {
		req := require.New(t)
		want, err := insight.Extract(plain)
		req.NoError(err)

		for _, wrapped := range []string{
			"```json\n" + plain + "\n```",
			"```JSON\n" + plain + "```",
			"```\n" + plain + "\n```",
			"Here you go:\n```json\n" + plain + "\n```\nThanks",
		} {
			got, err := insight.Extract(wrapped)
			req.NoError(err, wrapped)
			req.Equal(want, got)
		}
	})

	t.Run("prose around the object is ignored", func(t *testing.T) {
		req := require.New(t)
		got, err := insight.Extract("Sure! " + plain + " Hope it helps.")
		req.NoError(err)
		req.Equal("ok", got["englishSummary"])
	})

	t.Run("no braces yields NoStructureFound", func(t *testing.T) {
		req := require.New(t)
		for _, raw := range []string{"", "plain prose only", "only { opening", "closing } only", "} reversed {"} {
			_, err := insight.Extract(raw)
			var extErr *insight.ExtractionError
			req.ErrorAs(err, &extErr, raw)
			req.Equal(insight.NoStructureFound, extErr.Reason)
			req.Empty(extErr.RawTextSample)
		}
	})

	t.Run("broken object yields ParseError with a 500 character sample", func(t *testing.T) {
		req := require.New(t)
		raw := "{ not json " + strings.Repeat("x", 900) + " }"
		_, err := insight.Extract(raw)

		var extErr *insight.ExtractionError
		req.ErrorAs(err, &extErr)
		req.Equal(insight.ParseError, extErr.Reason)
		req.Len([]rune(extErr.RawTextSample), 500)
		req.True(strings.HasPrefix(raw, extErr.RawTextSample))
	})

	t.Run("short broken object keeps the whole raw text as sample", func(t *testing.T) {
		req := require.New(t)
		_, err := insight.Extract("{oops}")
		var extErr *insight.ExtractionError
		req.ErrorAs(err, &extErr)
		req.Equal("{oops}", extErr.RawTextSample)
	})

	t.Run("extraction is deterministic", func(t *testing.T) {
		req := require.New(t)
		a, errA := insight.Extract(plain)
		b, errB := insight.Extract(plain)
		req.NoError(errA)
		req.NoError(errB)
		req.Equal(a, b)
	})
}
