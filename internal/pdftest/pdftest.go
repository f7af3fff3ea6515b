// Package pdftest builds small, well-formed PDF files for tests. Each page
// shows one line of Helvetica text.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Options alters the generated page tree.
type Options struct {
	// Count replaces the /Count of the root page tree node when non-empty.
	Count string
	// SelfKid makes the root page tree node list itself among its kids.
	SelfKid bool
	// Header replaces the "%PDF-1.4" header line, including its newline.
	Header string
}

// Build returns a PDF with one page per entry of pages.
func Build(pages []string, opts Options) []byte {
	const (
		catalogID = 1
		treeID    = 2
		fontID    = 3
	)
	pageID := func(i int) int { return 4 + 2*i }
	contentID := func(i int) int { return 5 + 2*i }

	kids := make([]string, 0, len(pages)+1)
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID(i)))
	}
	if opts.SelfKid {
		kids = append(kids, fmt.Sprintf("%d 0 R", treeID))
	}
	count := opts.Count
	if count == "" {
		count = fmt.Sprint(len(pages))
	}

	objects := map[int]string{
		catalogID: fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", treeID),
		treeID:    fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %s >>", strings.Join(kids, " "), count),
		fontID:    "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", escape(text))
		objects[pageID(i)] = fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			treeID, fontID, contentID(i))
		objects[contentID(i)] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream)
	}

	size := 4 + 2*len(pages)
	var buf bytes.Buffer
	header := opts.Header
	if header == "" {
		header = "%PDF-1.4\n"
	}
	buf.WriteString(header)
	offsets := make([]int, size)
	for id := 1; id < size; id++ {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, objects[id])
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id < size; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, catalogID, xref)
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
