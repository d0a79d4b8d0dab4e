package convert

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/util"
)

// imageToPDF writes input as a single-page PDF sized to the image, with the
// pixels embedded as a JPEG stream.
func (c *Converter) imageToPDF(_ context.Context, input, output string) (string, error) {
	img, err := decodeImage(input)
	if err != nil {
		return "", err
	}

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", mterrors.NewIOError("Image->PDF conversion failed: encoding page", err)
	}

	b := img.Bounds()
	doc := singleImagePDF(b.Dx(), b.Dy(), jpg.Bytes())
	if err := os.WriteFile(output, doc, 0644); err != nil {
		return "", mterrors.NewIOError(fmt.Sprintf("writing %s", output), err)
	}
	return fmt.Sprintf("Image -> PDF conversion to %s completed.", output), nil
}

// singleImagePDF builds a minimal PDF 1.4 document with one page that
// draws a DCT-encoded image at 1 point per pixel.
func singleImagePDF(width, height int, jpg []byte) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] "+
		"/Resources << /XObject << /Im0 4 0 R >> >> /Contents 5 0 R >>", width, height))

	offsets = append(offsets, buf.Len())
	fmt.Fprintf(&buf, "4 0 obj\n<< /Type /XObject /Subtype /Image /Width %d /Height %d "+
		"/ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n",
		width, height, len(jpg))
	buf.Write(jpg)
	buf.WriteString("\nendstream\nendobj\n")

	content := fmt.Sprintf("q %d 0 0 %d 0 0 cm /Im0 Do Q", width, height)
	obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// pdfToImage rasterizes every page and writes {stem}_page{i}{ext} next to
// output, numbering pages from zero.
func (c *Converter) pdfToImage(ctx context.Context, input, output string) (string, error) {
	if _, err := encoderFor(filepath.Ext(output)); err != nil {
		return "", err
	}

	tmp, err := util.CreateTempDir(c.tempDir, "mousetrap_pages")
	if err != nil {
		return "", mterrors.NewIOError("creating page directory", err)
	}
	defer func() { _ = tmp.Cleanup() }()

	prefix := filepath.Join(tmp.Path(), "page")
	if err := c.runTool(ctx, c.tools.PDFToPPM, "-png", input, prefix); err != nil {
		return "", err
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", mterrors.NewIOError("listing rendered pages", err)
	}
	if len(pages) == 0 {
		return "", mterrors.New(mterrors.KindParse, fmt.Sprintf("No images extracted from %s.", input))
	}
	// pdftoppm zero-pads page numbers to a common width.
	sort.Strings(pages)

	outDir := filepath.Dir(output)
	stem := util.GetFileStem(output)
	ext := filepath.Ext(output)
	for i, page := range pages {
		img, err := decodeImage(page)
		if err != nil {
			return "", err
		}
		dst := filepath.Join(outDir, fmt.Sprintf("%s_page%d%s", stem, i, ext))
		if err := encodeImage(dst, img); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("PDF -> Image(s) in %s completed.", outDir), nil
}

func (c *Converter) pdfToTXT(ctx context.Context, input, output string) (string, error) {
	if err := c.runTool(ctx, c.tools.PDFToText, "-layout", input, output); err != nil {
		removeIfEmpty(output)
		return "", err
	}
	return fmt.Sprintf("PDF->TXT conversion to %s completed.", output), nil
}

// pdfToDOCX extracts the text layer and lets pandoc build the document.
func (c *Converter) pdfToDOCX(ctx context.Context, input, output string) (string, error) {
	txt, err := util.CreateTempFile(c.tempDir, "mousetrap_pdftext", "txt")
	if err != nil {
		return "", mterrors.NewIOError("creating temp text file", err)
	}
	defer func() { _ = txt.Cleanup() }()

	if err := c.runTool(ctx, c.tools.PDFToText, input, txt.Path()); err != nil {
		return "", err
	}
	if _, err := c.pandoc(ctx, txt.Path(), output, "docx", "PDF->DOCX"); err != nil {
		return "", err
	}
	return fmt.Sprintf("PDF->DOCX conversion to %s completed.", output), nil
}

// docxToPDF renders through a headless office suite, which names its output
// after the input, then moves the result into place.
func (c *Converter) docxToPDF(ctx context.Context, input, output string) (string, error) {
	tmp, err := util.CreateTempDir(c.tempDir, "mousetrap_docx")
	if err != nil {
		return "", mterrors.NewIOError("creating conversion directory", err)
	}
	defer func() { _ = tmp.Cleanup() }()

	if err := c.runTool(ctx, c.tools.LibreOffice, "--headless", "--convert-to", "pdf", "--outdir", tmp.Path(), input); err != nil {
		return "", err
	}
	rendered := filepath.Join(tmp.Path(), util.GetFileStem(input)+".pdf")
	if !util.FileExists(rendered) {
		return "", mterrors.NewPathError(fmt.Sprintf("DOCX->PDF failed: %s produced no output", c.tools.LibreOffice))
	}
	if err := moveFile(rendered, output); err != nil {
		return "", mterrors.NewIOError(fmt.Sprintf("moving PDF to %s", output), err)
	}
	return fmt.Sprintf("DOCX->PDF conversion to %s completed.", output), nil
}

func (c *Converter) pandoc(ctx context.Context, input, output, format, label string) (string, error) {
	args := []string{input, "-t", format, "-o", output}
	if format == "pdf" {
		// pandoc infers the pdf writer from the output name.
		args = []string{input, "-o", output}
	}
	if err := c.runTool(ctx, c.tools.Pandoc, args...); err != nil {
		removeIfEmpty(output)
		return "", err
	}
	return fmt.Sprintf("%s conversion to %s completed.", label, output), nil
}

func (c *Converter) runTool(ctx context.Context, tool string, args ...string) error {
	c.logger.Debug().Str("tool", tool).Strs("args", args).Msg("Running external tool")

	cmd := exec.CommandContext(ctx, tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return mterrors.Wrap(mterrors.KindCancelled, tool+" cancelled", ctx.Err())
		}
		return mterrors.WrapExecError(tool, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
