package ingest

import (
	"encoding/base64"
	"strings"

	"golang.org/x/net/html"
)

// headerValue returns the named payload header, case-insensitively.
func headerValue(msg *Message, name string) string {
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractBody walks the MIME tree and concatenates every decodable part.
// HTML parts are reduced to their text content.
func extractBody(msg *Message) string {
	return strings.TrimSpace(walkPart(&msg.Payload))
}

func walkPart(part *MessagePart) string {
	var b strings.Builder
	for i := range part.Parts {
		b.WriteString(walkPart(&part.Parts[i]))
	}
	if b.Len() > 0 {
		return b.String()
	}
	if part.Body.Data == "" {
		return ""
	}
	decoded, err := decodeBody(part.Body.Data)
	if err != nil {
		return ""
	}
	if strings.Contains(strings.ToLower(part.MimeType), "html") {
		return htmlToText(decoded) + "\n"
	}
	return decoded + "\n"
}

// decodeBody decodes Gmail's base64url body data, tolerating padded input.
func decodeBody(data string) (string, error) {
	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// htmlToText reduces an HTML document to its visible text, one line per text
// node, skipping script and style subtrees. Unparseable input is returned
// as-is.
func htmlToText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n")
}
