package docx

import "strings"

// mergeSplitPlaceholders rejoins placeholders whose characters are spread
// over several text nodes of the same paragraph. Every character of a match
// moves into the node holding its first character; markup is left in place.
func mergeSplitPlaceholders(part string) string {
	return paragraphRE.ReplaceAllStringFunc(part, mergeParagraph)
}

func mergeParagraph(p string) string {
	nodes := textNodeRE.FindAllStringSubmatchIndex(p, -1)
	if len(nodes) < 2 {
		return p
	}

	var joined strings.Builder
	var owner []int
	for i, n := range nodes {
		content := p[n[4]:n[5]]
		joined.WriteString(content)
		for j := 0; j < len(content); j++ {
			owner = append(owner, i)
		}
	}
	text := joined.String()

	moved := false
	for _, m := range placeholderRE.FindAllStringIndex(text, -1) {
		first := owner[m[0]]
		for k := m[0]; k < m[1]; k++ {
			if owner[k] != first {
				owner[k] = first
				moved = true
			}
		}
	}
	if !moved {
		return p
	}

	contents := make([][]byte, len(nodes))
	for k := 0; k < len(text); k++ {
		contents[owner[k]] = append(contents[owner[k]], text[k])
	}

	var out strings.Builder
	last := 0
	for i, n := range nodes {
		out.WriteString(p[last:n[0]])
		open, content := p[n[2]:n[3]], string(contents[i])
		if content != p[n[4]:n[5]] {
			open = preserveSpace(open)
		}
		out.WriteString(open)
		out.WriteString(content)
		out.WriteString(p[n[6]:n[7]])
		last = n[1]
	}
	out.WriteString(p[last:])
	return out.String()
}

// preserveSpace adds xml:space="preserve" to a <w:t> start tag.
func preserveSpace(open string) string {
	if strings.Contains(open, "xml:space") {
		return open
	}
	return `<w:t xml:space="preserve"` + strings.TrimPrefix(open, "<w:t")
}
