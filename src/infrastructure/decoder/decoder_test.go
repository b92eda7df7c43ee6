package decoder_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/src/core/docqa"
	"docqa/src/infrastructure/decoder"
)

type recordingDecoder struct {
	called bool
}

func (r *recordingDecoder) Decode(context.Context, string, []byte) ([]docqa.Page, error) {
	r.called = true
	return []docqa.Page{{Number: 1, Text: "from pdf"}}, nil
}

func TestByExtension(t *testing.T) {
	ctx := context.Background()
	pdf := &recordingDecoder{}
	d := decoder.NewByExtension(pdf)

	pages, err := d.Decode(ctx, "Report.PDF", []byte("%PDF"))
	require.NoError(t, err)
	assert.True(t, pdf.called)
	assert.Equal(t, "from pdf", pages[0].Text)

	pages, err = d.Decode(ctx, "notes.txt", []byte("first page\fsecond page"))
	require.NoError(t, err)
	assert.Equal(t, []docqa.Page{{Number: 1, Text: "first page"}, {Number: 2, Text: "second page"}}, pages)

	_, err = d.Decode(ctx, "image.png", []byte{0x89})
	assert.ErrorIs(t, err, docqa.ErrDecode)

	assert.True(t, decoder.Supported("a.md"))
	assert.False(t, decoder.Supported("a.docx"))
}

func TestPlainTextRejectsBinary(t *testing.T) {
	_, err := decoder.PlainText{}.Decode(context.Background(), "bin.txt", []byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(t, err, docqa.ErrDecode)
}

func TestPDFRejectsGarbage(t *testing.T) {
	_, err := decoder.PDF{}.Decode(context.Background(), "broken.pdf", []byte("this is not a pdf"))
	assert.ErrorIs(t, err, docqa.ErrDecode)
}

// onePagePDF builds a minimal single-page PDF with a valid xref table.
func onePagePDF() []byte {
	content := "BT /F1 12 Tf 10 100 Td (Paris is the capital of France.) Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 200] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

func TestPDFCancelledIsRetryable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := decoder.PDF{}.Decode(ctx, "paris.pdf", onePagePDF())
	require.Error(t, err)
	assert.ErrorIs(t, err, docqa.ErrBackendUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, docqa.ErrDecode)
	assert.Equal(t, docqa.UnavailableText, docqa.UserMessage(err))
}
