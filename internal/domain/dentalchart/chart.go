// Package dentalchart derives the per-quadrant tooth text shown on the dental
// section of an examination report.
package dentalchart

import "strings"

// Group is a fixed, ordered set of FDI tooth codes.
type Group struct {
	Name      string
	Permanent bool
	Codes     []string
}

// Groups lists the eight chart groups in report order. Membership is fixed and
// never derived from patient data.
var Groups = []Group{
	{Name: "perm_group1", Permanent: true, Codes: []string{"18", "17", "16", "15", "14", "13", "12", "11"}},
	{Name: "perm_group2", Permanent: true, Codes: []string{"21", "22", "23", "24", "25", "26", "27", "28"}},
	{Name: "perm_group3", Permanent: true, Codes: []string{"48", "47", "46", "45", "44", "43", "42", "41"}},
	{Name: "perm_group4", Permanent: true, Codes: []string{"31", "32", "33", "34", "35", "36", "37", "38"}},
	{Name: "prim_group1", Codes: []string{"55", "54", "53", "52", "51"}},
	{Name: "prim_group2", Codes: []string{"61", "62", "63", "64", "65"}},
	{Name: "prim_group3", Codes: []string{"85", "84", "83", "82", "81"}},
	{Name: "prim_group4", Codes: []string{"71", "72", "73", "74", "75"}},
}

const separator = ", "

// SelectedKey is the report placeholder holding the selected codes of group.
func SelectedKey(group string) string { return "selected_" + group }

// RemainingKey is the report placeholder holding the unselected codes of group.
func RemainingKey(group string) string { return "remaining_" + group }

// ParseCodes splits a comma separated tooth list, trimming whitespace and
// dropping empty entries.
func ParseCodes(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, p)
		}
	}
	return codes
}

// Partition splits the group's codes into those present in selected and those
// absent from it. Both results keep the group's canonical order.
func (g Group) Partition(selected []string) (present, absent []string) {
	set := make(map[string]struct{}, len(selected))
	for _, c := range selected {
		set[c] = struct{}{}
	}
	for _, c := range g.Codes {
		if _, ok := set[c]; ok {
			present = append(present, c)
		} else {
			absent = append(absent, c)
		}
	}
	return present, absent
}

// Derive computes the 16 chart values for the permanent and primary cavity
// lists. Codes that belong to no group are ignored.
func Derive(permanentCSV, primaryCSV string) map[string]string {
	perm := ParseCodes(permanentCSV)
	prim := ParseCodes(primaryCSV)

	out := make(map[string]string, 2*len(Groups))
	for _, g := range Groups {
		selected := prim
		if g.Permanent {
			selected = perm
		}
		present, absent := g.Partition(selected)
		out[SelectedKey(g.Name)] = strings.Join(present, separator)
		out[RemainingKey(g.Name)] = strings.Join(absent, separator)
	}
	return out
}
