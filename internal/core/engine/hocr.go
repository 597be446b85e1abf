package engine

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// hocrPage is the text and word confidences recovered from tesseract hOCR output.
type hocrPage struct {
	Text     string
	Words    int
	MeanConf float64 // 0..1 over words with a confidence
}

// parseHOCR rebuilds plain text from ocr_par/ocr_line/ocrx_word spans and
// averages x_wconf. Paragraphs are separated by a blank line.
func parseHOCR(data []byte) (hocrPage, error) {
	var page hocrPage
	if enc := hocrCharset(data); enc != "" && enc != "utf-8" && enc != "utf8" {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return page, fmt.Errorf("failed to decode %s: %w", enc, err)
		}
		data = decoded
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return page, err
	}

	var (
		paras    []string
		lines    []string
		words    []string
		confSum  float64
		confN    int
		sawPages bool
	)
	flushLine := func() {
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
			words = words[:0]
		}
	}
	flushPara := func() {
		flushLine()
		if len(lines) > 0 {
			paras = append(paras, strings.Join(lines, "\n"))
			lines = lines[:0]
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			class := attr(n, "class")
			switch {
			case hasClass(class, "ocr_page"):
				sawPages = true
			case hasClass(class, "ocr_par"):
				flushPara()
			case hasClass(class, "ocr_line"), hasClass(class, "ocr_header"), hasClass(class, "ocr_caption"), hasClass(class, "ocr_textfloat"):
				flushLine()
			case hasClass(class, "ocrx_word"):
				if w := strings.TrimSpace(nodeText(n)); w != "" {
					words = append(words, w)
					page.Words++
					if c, ok := wordConf(attr(n, "title")); ok {
						confSum += c
						confN++
					}
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flushPara()

	if !sawPages {
		return page, fmt.Errorf("no ocr_page elements found in hOCR data")
	}
	page.Text = strings.Join(paras, "\n\n")
	if confN > 0 {
		page.MeanConf = confSum / float64(confN) / 100
	}
	return page, nil
}

func hocrCharset(data []byte) string {
	head := data
	if len(head) > 2048 {
		head = head[:2048]
	}
	i := bytes.Index(bytes.ToLower(head), []byte("charset="))
	if i < 0 {
		return ""
	}
	rest := string(head[i+len("charset="):])
	fields := strings.FieldsFunc(rest, func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' ' || r == '/'
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// wordConf reads "x_wconf NN" from an hOCR title attribute.
// Example input: "bbox 100 200 300 400; x_wconf 95"
func wordConf(title string) (float64, bool) {
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) == 2 && items[0] == "x_wconf" {
			v, err := strconv.ParseFloat(items[1], 64)
			if err != nil || v < 0 {
				return 0, false
			}
			return v, true
		}
	}
	return 0, false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(class, want string) bool {
	for _, c := range strings.Fields(class) {
		if c == want {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
