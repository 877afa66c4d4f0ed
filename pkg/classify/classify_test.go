package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"plain", "wg-us-1.conf", "US"},
		{"collision suffix", "wg-us-1 (2).conf", "US"},
		{"stacked suffixes", "wg-ch-4 (1) (3).conf", "CH"},
		{"uppercase portal name", "wg-DE-FREE#12.conf", "DE"},
		{"hash separator", "NL#7.conf", "NL"},
		{"no prefix", "jp-5.conf", "JP"},
		{"full path", "/tmp/downloads/wg-se-2.conf", "SE"},
		{"catch-all", "special.conf", CatchAll},
		{"three letters", "wg-usa-1.conf", CatchAll},
		{"digits", "wg-1a-1.conf", CatchAll},
		{"single letter", "x-1.conf", CatchAll},
		{"non-ascii letters", "wg-éa-1.conf", CatchAll},
		{"empty", "", CatchAll},
		{"extension only", ".conf", CatchAll},
		{"whitespace", "  fr-3 .conf", "FR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Category(tt.file))
		})
	}
}

func TestCategoryIdempotent(t *testing.T) {
	for _, name := range []string{"wg-us-1.conf", "special.conf", "wg-ch-4 (1).conf", ""} {
		first := Category(name)
		assert.Equal(t, first, Category(name), name)
	}
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "wg-us-1", DedupKey("wg-us-1.conf"))
	assert.Equal(t, DedupKey("wg-us-1.conf"), DedupKey("wg-US-1 (2).conf"))
	assert.NotEqual(t, DedupKey("wg-us-1.conf"), DedupKey("wg-us-2.conf"))
}
