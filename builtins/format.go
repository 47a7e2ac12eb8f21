package builtins

import (
	"fmt"
	"net/url"
	"strings"
)

// Signature renders the parameter list of a usage, e.g. `( a, b )`.
func Signature(usage UsageSignature) string {
	if len(usage.Parameters) == 0 {
		return "()"
	}

	names := make([]string, 0, len(usage.Parameters))
	for _, p := range usage.Parameters {
		names = append(names, p.Name)
	}
	return "( " + strings.Join(names, ", ") + " )"
}

// Link resolves the documentation link of a definition against linkRoot.
// Absolute wiki links are kept as they are.
func (def *Definition) Link(linkRoot string) (string, bool) {
	page := def.Wiki
	if len(page) == 0 {
		return "", false
	}
	if u, err := url.Parse(page); err == nil && u.IsAbs() {
		return page, true
	}
	if len(linkRoot) == 0 {
		return "", false
	}
	return strings.TrimRight(linkRoot, "/") + "/" + strings.TrimLeft(page, "/"), true
}

// Hover renders a markdown description of the definition.
func (def *Definition) Hover(linkRoot string) string {
	var sb strings.Builder
	usage, _ := def.LastUsage()

	fmt.Fprintf(&sb, "#### **%s**", def.Name)
	if def.Kind == FunctionKind || len(usage.Parameters) > 0 {
		sb.WriteString(Signature(usage))
	}
	sb.WriteString("\n\n")
	sb.WriteString(def.Description)

	for _, p := range usage.Parameters {
		fmt.Fprintf(&sb, "\n\n**%s** `%s`: %s", p.Name, p.Type, p.Description)
	}

	if len(def.Returns) != 0 {
		fmt.Fprintf(&sb, "\n\n*Returns:* %s", def.Returns)
	}
	if def.IsTrusted {
		sb.WriteString("\n\n*Requires a trusted macro.*")
	}
	if link, ok := def.Link(linkRoot); ok {
		fmt.Fprintf(&sb, "\n\n[Documentation](%s)", link)
	}
	return sb.String()
}
