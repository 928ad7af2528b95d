package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"

	"aster/internal/errors"
	"aster/internal/resource"
)

// XMLExtractor handles resource-definition files and every other XML file
// in the resource tree. It finds three things:
//
//   - declarations: children of <resources> carrying a name attribute
//     (<string name="...">, <item name="..." type="...">, nested
//     <attr> declarations inside <declare-styleable>), with the byte span
//     of the whole element recorded for the mutator
//   - references: @type/name tokens in attribute values and character
//     data, with @+id/name counting as an id declaration and
//     @package:type/name framework references ignored
//   - file-backed declarations: an XML file sitting under a typed res
//     directory (res/layout/, res/drawable-hdpi/, ...) declares the
//     resource named by its own file name
//
// A well-formedness failure rejects the whole file: the scan records one
// extraction diagnostic and the file contributes zero occurrences.
type XMLExtractor struct{}

// NewXMLExtractor creates an XML extractor.
func NewXMLExtractor() *XMLExtractor {
	return &XMLExtractor{}
}

// xmlRefPattern matches resource references: @type/name, @+id/name, and
// package-qualified @android:type/name forms (captured so they can be
// skipped).
var xmlRefPattern = regexp.MustCompile(`@(\+)?(?:([A-Za-z0-9_.]+):)?([A-Za-z][A-Za-z-]*)/([A-Za-z0-9_.]+)`)

// pendingElement tracks an open definition element until its end tag
// arrives and the full byte span is known.
type pendingElement struct {
	id    resource.Identifier
	start int
	line  int
	col   int
	depth int
}

// Extract implements Extractor.
func (e *XMLExtractor) Extract(path string, content []byte) (*Result, error) {
	res := &Result{}
	lines := newLineIndex(content)

	// File-backed declaration from the path alone, e.g. res/layout/main.xml.
	if id, diag, ok := fileBackedIdentifier(path); ok {
		if diag != nil {
			res.Diagnostics = append(res.Diagnostics, *diag)
		} else {
			res.Occurrences = append(res.Occurrences, resource.Occurrence{
				Identifier: id,
				Kind:       resource.KindDefinition,
				Path:       path,
				Line:       1,
				Column:     1,
				FileBacked: true,
			})
		}
	}

	masked, err := e.walkDocument(path, content, lines, res)
	if err != nil {
		return nil, err
	}

	e.scanReferences(path, masked, lines, res)

	return res, nil
}

// walkDocument streams the document once: it validates well-formedness,
// emits declaration occurrences with full element spans, and returns a
// copy of the content with comments blanked out so the reference scan
// cannot match inside them.
func (e *XMLExtractor) walkDocument(path string, content []byte, lines *lineIndex, res *Result) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	masked := make([]byte, len(content))
	copy(masked, content)

	var (
		root    string
		depth   int
		pending []pendingElement
	)

	for {
		start := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, _ := lines.position(start)
			return nil, errors.New(errors.ExtractionError,
				fmt.Sprintf("%s: malformed XML near line %d", path, line), err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				root = t.Name.Local
			}
			if id, ok := e.declarationIn(root, depth, pending, t); ok {
				line, col := lines.position(start)
				pending = append(pending, pendingElement{
					id:    id,
					start: start,
					line:  line,
					col:   col,
					depth: depth,
				})
			} else if bad, msg := e.badDeclaration(root, depth, t); bad {
				line, _ := lines.position(start)
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Path:    path,
					Line:    line,
					Code:    errors.NormalizationError,
					Message: msg,
				})
			}
			depth++

		case xml.EndElement:
			depth--
			if n := len(pending); n > 0 && pending[n-1].depth == depth {
				p := pending[n-1]
				pending = pending[:n-1]
				res.Occurrences = append(res.Occurrences, resource.Occurrence{
					Identifier: p.id,
					Kind:       resource.KindDefinition,
					Path:       path,
					Line:       p.line,
					Column:     p.col,
					StartByte:  p.start,
					EndByte:    int(dec.InputOffset()),
				})
			}

		case xml.Comment:
			end := int(dec.InputOffset())
			for i := start; i < end && i < len(masked); i++ {
				if masked[i] != '\n' {
					masked[i] = ' '
				}
			}
		}
	}

	return masked, nil
}

// declarationIn decides whether a start element declares a resource and,
// if so, returns its normalized identifier. Declarations live directly
// under <resources>, plus <attr> children of <declare-styleable>.
func (e *XMLExtractor) declarationIn(root string, depth int, pending []pendingElement, t xml.StartElement) (resource.Identifier, bool) {
	if root != "resources" {
		return resource.Identifier{}, false
	}

	name := attrValue(t, "name")
	if name == "" {
		return resource.Identifier{}, false
	}

	resType := ""
	switch {
	case depth == 1 && t.Name.Local == "item":
		resType = attrValue(t, "type")
	case depth == 1 && t.Name.Local == "declare-styleable":
		resType = "styleable"
	case depth == 1:
		resType = t.Name.Local
	case depth == 2 && t.Name.Local == "attr" && insideStyleable(pending):
		resType = "attr"
	default:
		return resource.Identifier{}, false
	}

	id, err := resource.Normalize(resType, name)
	if err != nil {
		return resource.Identifier{}, false
	}
	return id, true
}

// badDeclaration reports candidate declarations that failed to classify:
// an element with a name attribute whose type token is not a known
// resource type. Directive elements without a name (<eat-comment/>) are
// not candidates and stay silent.
func (e *XMLExtractor) badDeclaration(root string, depth int, t xml.StartElement) (bool, string) {
	if root != "resources" || depth != 1 {
		return false, ""
	}
	name := attrValue(t, "name")
	if name == "" {
		return false, ""
	}

	resType := t.Name.Local
	if t.Name.Local == "item" {
		resType = attrValue(t, "type")
	}
	if t.Name.Local == "declare-styleable" {
		resType = "styleable"
	}

	if _, err := resource.Normalize(resType, name); err != nil {
		return true, fmt.Sprintf("cannot classify <%s name=%q>: %v", t.Name.Local, name, err)
	}
	return false, ""
}

func insideStyleable(pending []pendingElement) bool {
	return len(pending) > 0 && pending[len(pending)-1].id.Type == "styleable"
}

func attrValue(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// scanReferences finds @type/name tokens in the comment-masked content.
// For a reference that is the entire value of an attribute, the removable
// span is the whole attribute including its leading whitespace; otherwise
// it is the bare token.
func (e *XMLExtractor) scanReferences(path string, masked []byte, lines *lineIndex, res *Result) {
	for _, m := range xmlRefPattern.FindAllSubmatchIndex(masked, -1) {
		refStart, refEnd := m[0], m[1]
		plus := m[2] != -1
		hasPackage := m[4] != -1
		rawType := string(masked[m[6]:m[7]])
		rawName := string(masked[m[8]:m[9]])

		if hasPackage {
			// Framework or library reference (@android:string/ok); not a
			// resource of this project.
			continue
		}

		id, err := resource.Normalize(rawType, rawName)
		if err != nil {
			line, _ := lines.position(refStart)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Path:    path,
				Line:    line,
				Code:    errors.NormalizationError,
				Message: fmt.Sprintf("cannot classify reference @%s/%s: %v", rawType, rawName, err),
			})
			continue
		}

		kind := resource.KindUsage
		if plus {
			// @+id/foo declares the id at its first mention.
			kind = resource.KindDefinition
		}

		start, end := refStart, refEnd
		if s, eo, ok := attributeSpan(masked, refStart, refEnd); ok {
			start, end = s, eo
		}

		line, col := lines.position(refStart)
		res.Occurrences = append(res.Occurrences, resource.Occurrence{
			Identifier: id,
			Kind:       kind,
			Path:       path,
			Line:       line,
			Column:     col,
			StartByte:  start,
			EndByte:    end,
		})
	}
}

// attributeSpan widens a reference token to its enclosing attribute when
// the token is the attribute's entire value: name="@type/name". The span
// includes the whitespace separating the attribute from what precedes it,
// so deleting the span leaves the element well formed.
func attributeSpan(content []byte, refStart, refEnd int) (int, int, bool) {
	if refStart == 0 || refEnd >= len(content) {
		return 0, 0, false
	}

	quote := content[refStart-1]
	if quote != '"' && quote != '\'' {
		return 0, 0, false
	}
	if content[refEnd] != quote {
		return 0, 0, false
	}

	// Walk back over: opening quote, optional whitespace, '=', optional
	// whitespace, the attribute name, then the separating whitespace.
	i := refStart - 2
	i = skipSpaceLeft(content, i)
	if i < 0 || content[i] != '=' {
		return 0, 0, false
	}
	i--
	i = skipSpaceLeft(content, i)
	nameEnd := i
	for i >= 0 && isAttrNameByte(content[i]) {
		i--
	}
	if i == nameEnd {
		return 0, 0, false
	}
	spanStart := i + 1
	for spanStart > 0 && isSpaceByte(content[spanStart-1]) {
		spanStart--
	}

	return spanStart, refEnd + 1, true
}

func skipSpaceLeft(content []byte, i int) int {
	for i >= 0 && isSpaceByte(content[i]) {
		i--
	}
	return i
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isAttrNameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_' || b == ':' || b == '-' || b == '.':
		return true
	}
	return false
}
