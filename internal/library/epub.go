package library

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// epubExtractor reads an epub container: the OPF package document names
// the content files, the spine orders them, and each is XHTML reduced to
// its text. Epubs with a broken or missing package fall back to every
// XHTML entry in archive order.
type epubExtractor struct{}

func (epubExtractor) Extract(filePath string) (string, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open epub %s: %w", filePath, err)
	}
	defer zr.Close()

	docs := spineDocuments(&zr.Reader)
	if len(docs) == 0 {
		docs = xhtmlEntries(&zr.Reader)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("no text content in epub %s", filePath)
	}

	var b strings.Builder
	for _, f := range docs {
		text, err := xhtmlText(f)
		if err != nil {
			return "", fmt.Errorf("failed to extract %s from epub %s: %w", f.Name, filePath, err)
		}
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(b.String()), nil
}

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Items []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Itemrefs []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// spineDocuments resolves META-INF/container.xml to the package document
// and returns the spine's content files in reading order. A nil result
// means the package could not be followed.
func spineDocuments(zr *zip.Reader) []*zip.File {
	var container epubContainer
	if err := unmarshalZipEntry(zr, "META-INF/container.xml", &container); err != nil {
		return nil
	}
	if len(container.Rootfiles) == 0 {
		return nil
	}
	opfPath := container.Rootfiles[0].FullPath

	var pkg epubPackage
	if err := unmarshalZipEntry(zr, opfPath, &pkg); err != nil {
		return nil
	}

	hrefByID := make(map[string]string, len(pkg.Items))
	for _, item := range pkg.Items {
		if item.MediaType == "application/xhtml+xml" {
			hrefByID[item.ID] = item.Href
		}
	}

	opfDir := path.Dir(opfPath)
	var docs []*zip.File
	for _, ref := range pkg.Itemrefs {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}
		if f := zipEntry(zr, path.Join(opfDir, href)); f != nil {
			docs = append(docs, f)
		}
	}
	return docs
}

// xhtmlEntries returns every XHTML-looking entry in archive order.
func xhtmlEntries(zr *zip.Reader) []*zip.File {
	var docs []*zip.File
	for _, f := range zr.File {
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".xhtml", ".html", ".htm":
			docs = append(docs, f)
		}
	}
	return docs
}

func zipEntry(zr *zip.Reader, name string) *zip.File {
	name = path.Clean(name)
	for _, f := range zr.File {
		if path.Clean(f.Name) == name {
			return f
		}
	}
	return nil
}

func unmarshalZipEntry(zr *zip.Reader, name string, v any) error {
	f := zipEntry(zr, name)
	if f == nil {
		return fmt.Errorf("missing epub entry %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

// xhtmlText walks one content document's tokens keeping only character
// data, with head/script/style subtrees dropped and block-element
// boundaries kept as blank lines for line/sentence windowing.
func xhtmlText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var b strings.Builder
	skipDepth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch strings.ToLower(t.Name.Local) {
			case "head", "script", "style":
				skipDepth++
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch strings.ToLower(t.Name.Local) {
			case "head", "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "blockquote", "tr":
				b.WriteString("\n\n")
			}
		case xml.CharData:
			if skipDepth == 0 {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
