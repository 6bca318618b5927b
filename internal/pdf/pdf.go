package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rsc.io/pdf"
)

// Info summarizes what the uploader needs to know about a PDF.
type Info struct {
	Pages   int
	HasText bool
}

// Inspect opens path and reports its page count and whether any page
// carries extractable text. Malformed files return an error.
func Inspect(path string) (info Info, err error) {
	// rsc.io/pdf panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse %s: %v", path, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return Info{}, err
	}
	r, err := pdf.NewReader(f, st.Size())
	if err != nil {
		return Info{}, err
	}
	info.Pages = r.NumPage()
	for i := 1; i <= info.Pages && !info.HasText; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, t := range p.Content().Text {
			if strings.TrimSpace(strings.ReplaceAll(t.S, "\x00", "")) != "" {
				info.HasText = true
				break
			}
		}
	}
	return info, nil
}

func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
