package document

import (
	"testing"

	"learncards/internal/util"

	"github.com/stretchr/testify/require"
)

func TestExtractTextPlain(t *testing.T) {
	text, err := ExtractText("notes.md", []byte("  # Mitosis\x00\nCells divide.  "))
	require.NoError(t, err)
	require.NotContains(t, text, "\x00")
	require.Contains(t, text, "Cells divide.")
}

func TestExtractTextEmpty(t *testing.T) {
	_, err := ExtractText("blank.txt", []byte(" \n\t "))
	require.ErrorIs(t, err, util.ErrNoExtractableText)
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("slides.pptx", []byte("PK"))
	require.ErrorIs(t, err, util.ErrValidation)
}

func TestExtractTextCorruptPDF(t *testing.T) {
	_, err := ExtractText("paper.PDF", []byte("not a pdf"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "open pdf")
}
