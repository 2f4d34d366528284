package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter_Section(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out, false)

	p.Section("SETTINGS")
	p.Section("")

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Len(t, lines[0], LineWidth)
	assert.Contains(t, lines[0], " SETTINGS ")
	assert.True(t, strings.HasPrefix(lines[0], "---"))
	assert.Equal(t, strings.Repeat("-", LineWidth), lines[1])
}

func TestPrinter_SectionLongTitle(t *testing.T) {
	var out bytes.Buffer
	newPrinter(&out, false).Section(strings.Repeat("x", LineWidth+10))

	assert.Equal(t, " "+strings.Repeat("x", LineWidth+10)+" \n", out.String())
}

func TestPrinter_PlainLines(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out, false)

	p.Setting("Operating system", "windows", "autodetected")
	p.Done("Download")
	p.Failed("Extraction")
	p.Warn("careful")

	assert.Equal(t, "Operating system: windows (autodetected)\n"+
		"Download done\n"+
		"Extraction failed\n"+
		"careful\n", out.String())
}
