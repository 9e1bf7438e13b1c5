package md2doc

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"time"

	"codeberg.org/go-pdf/fpdf"
)

const (
	// pageWidthMM is the A4 portrait width the capture is scaled to.
	pageWidthMM = 210.0

	// pageEpsilon absorbs float error so an image exactly N pages tall
	// does not produce an empty trailing page.
	pageEpsilon = 1e-6

	pageImageName = "document"
)

// documentEpoch stamps every PDF so identical input gives identical bytes.
var documentEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// pageOffsets returns the vertical image offset, in millimeters, of every
// page needed to show an image imgHeight tall through pages pageHeight tall.
// The first page starts at 0; each further page shifts the image up.
func pageOffsets(imgHeight, pageHeight float64) []float64 {
	offsets := []float64{0}
	remaining := imgHeight - pageHeight
	for remaining > pageEpsilon {
		offsets = append(offsets, remaining-imgHeight)
		remaining -= pageHeight
	}
	return offsets
}

// imageHeightMM scales the capture height to the page width.
func imageHeightMM(b image.Rectangle) float64 {
	return float64(b.Dy()) * pageWidthMM / float64(b.Dx())
}

// encodePDF slices the capture across A4 pages.
func encodePDF(img image.Image, pageHeightMM float64) ([]byte, error) {
	var raw bytes.Buffer
	if err := png.Encode(&raw, flatten(img)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFEncode, err)
	}
	imgHeight := imageHeightMM(img.Bounds())

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(documentEpoch)
	doc.SetModificationDate(documentEpoch)
	doc.SetCatalogSort(true)
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader(pageImageName, opts, &raw)

	for _, y := range pageOffsets(imgHeight, pageHeightMM) {
		doc.AddPage()
		doc.ImageOptions(pageImageName, 0, y, pageWidthMM, imgHeight, false, opts, 0, "")
	}

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFEncode, err)
	}
	return out.Bytes(), nil
}
