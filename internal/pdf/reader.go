package pdf

import (
	"bytes"
	"errors"
	"fmt"

	lpdf "github.com/ledongthuc/pdf"
)

var errEmptyPage = errors.New("page has no content")

type ledongthucDoc struct {
	r *lpdf.Reader
}

func openLedongthuc(data []byte) (doc document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return ledongthucDoc{r: r}, nil
}

func (d ledongthucDoc) NumPage() int { return d.r.NumPage() }

func (d ledongthucDoc) PageText(n int) (string, error) {
	p := d.r.Page(n)
	if p.V.IsNull() {
		return "", errEmptyPage
	}
	return p.GetPlainText(nil)
}
