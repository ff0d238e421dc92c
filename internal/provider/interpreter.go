package provider

import (
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
)

const (
	messageReceived  = "RNDC response received"
	messageNotXML    = "RNDC response is not well-formed XML"
	messageNoElement = "RNDC response has no XML element"
	messageHTMLPage  = "RNDC returned an HTML page instead of XML"
	messageNoCodigo  = "RNDC respuesta without codigo"
)

var okCodes = map[string]struct{}{"00": {}, "0": {}, "000": {}}

// Interpret classifies a raw RegistrarDatosMin response. It never fails:
// malformed upstream output becomes a PARSE_ERROR result.
func Interpret(raw string) Result {
	inner, err := extractInner(raw)
	if err != nil {
		return Result{Success: false, Code: CodeParseError, Message: err.Error(), RawXML: raw}
	}

	doc := parseLenient(inner)
	result := Result{RawXML: raw}

	if ingreso := doc.find("ingresoid"); ingreso != nil {
		result.IngresoID = strings.TrimSpace(ingreso.text.String())
	}
	result.Documents = doc.documents()

	switch respuesta, errMsg := doc.find("respuesta"), doc.find("ErrorMSG"); {
	case respuesta != nil:
		codigo := strings.TrimSpace(respuesta.childText("codigo"))
		mensaje := strings.TrimSpace(respuesta.childText("mensaje"))
		_, ok := okCodes[codigo]
		result.Success = ok
		result.Code = codigo
		result.Message = mensaje
		if codigo == "" {
			result.Code = CodeRNDCError
			if mensaje == "" {
				result.Message = messageNoCodigo
			}
		}
	case errMsg != nil:
		result.Success = false
		result.Code = CodeRNDCError
		result.Message = strings.TrimSpace(errMsg.text.String())
	default:
		result.Success = true
		result.Code = CodeSuccess
		result.Message = messageReceived
		if result.IngresoID != "" {
			result.Message = fmt.Sprintf("%s (ingresoid %s)", messageReceived, result.IngresoID)
		}
	}

	return result
}

// extractInner parses the outer envelope strictly and returns the nested RNDC
// document: the RegistrarDatosMinResult text, or the whole body when absent.
func extractInner(raw string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))
	dec.CharsetReader = passthroughCharset

	var (
		stack       []string
		elements    int
		capturing   int
		hasChildren bool
		start       int64
		resultText  strings.Builder
		found       bool
		inner       string
	)

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%s: %v", messageNotXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			elements++
			if elements == 1 && strings.EqualFold(t.Name.Local, "html") {
				return "", errors.New(messageHTMLPage)
			}
			if capturing > 0 {
				hasChildren = true
			} else if !found && isResultElement(t.Name.Local, stack) {
				capturing = len(stack) + 1
				start = dec.InputOffset()
				resultText.Reset()
				hasChildren = false
			}
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			if capturing == len(stack) {
				found = true
				capturing = 0
				if hasChildren {
					inner = raw[start:offset]
				} else {
					inner = resultText.String()
				}
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if capturing > 0 {
				resultText.Write(t)
			}
		}
	}

	if elements == 0 {
		return "", errors.New(messageNoElement)
	}
	if !found {
		return raw, nil
	}

	inner = strings.TrimSpace(inner)
	if strings.HasPrefix(inner, "&lt;") {
		inner = html.UnescapeString(inner)
	}
	return inner, nil
}

func isResultElement(local string, stack []string) bool {
	if local == "RegistrarDatosMinResult" {
		return true
	}
	return local == "return" && len(stack) > 0 && stack[len(stack)-1] == "RegistrarDatosMinResponse"
}

func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

type node struct {
	name     string
	text     strings.Builder
	children []*node
}

// parseLenient builds a tree from whatever prefix of the document is readable.
func parseLenient(doc string) *node {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = passthroughCharset

	root := &node{}
	stack := []*node{root}
	for {
		tok, err := dec.Token()
		if err != nil {
			return root
		}

		current := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			child := &node{name: t.Name.Local}
			current.children = append(current.children, child)
			stack = append(stack, child)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			current.text.Write(t)
		}
	}
}

func (n *node) find(name string) *node {
	for _, child := range n.children {
		if strings.EqualFold(child.name, name) {
			return child
		}
		if found := child.find(name); found != nil {
			return found
		}
	}
	return nil
}

func (n *node) childText(name string) string {
	for _, child := range n.children {
		if strings.EqualFold(child.name, name) {
			return child.text.String()
		}
	}
	return ""
}

func (n *node) documents() []map[string]string {
	var docs []map[string]string
	for _, child := range n.children {
		if strings.EqualFold(child.name, "documento") {
			fields := make(map[string]string, len(child.children))
			for _, field := range child.children {
				fields[field.name] = strings.TrimSpace(field.text.String())
			}
			docs = append(docs, fields)
			continue
		}
		docs = append(docs, child.documents()...)
	}
	return docs
}
