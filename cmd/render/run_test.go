package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/salesrace/internal/config"
	"github.com/godilite/salesrace/internal/player"
	"github.com/godilite/salesrace/internal/render"
)

const ledgerCSV = `order_date,a,b,c,region,province,d,e,f,g,amount,money
2023-01-05,,,,East,Jiangsu,,,,,1,100
2023-02-01,,,,West,Sichuan,,,,,3,300
2023-03-10,,,,East,Jiangsu,,,,,1,50
`

func TestParseMode(t *testing.T) {
	m, err := parseMode("bar-race")
	require.NoError(t, err)
	assert.Equal(t, player.BarRace, m)

	m, err = parseMode("treemap")
	require.NoError(t, err)
	assert.Equal(t, player.TreeMap, m)

	_, err = parseMode("pie")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(src, []byte(ledgerCSV), 0o644))

	cfg := config.Default()
	cfg.DateLocation = "UTC"

	for _, mode := range []string{"bar-race", "tree-map"} {
		t.Run(mode, func(t *testing.T) {
			out := filepath.Join(dir, mode)
			err := run(zaptest.NewLogger(t), cfg, options{
				source:  src,
				out:     out,
				mode:    mode,
				steps:   2,
				dims:    render.DefaultDimensions,
				pattern: render.DefaultPeriodPattern,
			})
			require.NoError(t, err)

			files, err := filepath.Glob(filepath.Join(out, "*.svg"))
			require.NoError(t, err)
			assert.Len(t, files, 6)

			last, err := os.ReadFile(filepath.Join(out, "frame-00005.svg"))
			require.NoError(t, err)
			assert.Contains(t, string(last), "2023-03")
		})
	}
}

func TestRun_Errors(t *testing.T) {
	cfg := config.Default()
	logger := zaptest.NewLogger(t)

	err := run(logger, cfg, options{mode: "pie", dims: render.DefaultDimensions})
	assert.Error(t, err)

	err = run(logger, cfg, options{mode: "bar-race", dims: render.Dimensions{Width: 40, Height: 40, Margin: 30}})
	assert.Error(t, err)

	err = run(logger, cfg, options{
		source: filepath.Join(t.TempDir(), "absent.csv"),
		out:    t.TempDir(),
		mode:   "bar-race",
		dims:   render.DefaultDimensions,
	})
	assert.Error(t, err)
}
