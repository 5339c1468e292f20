package examination

import "github.com/ehr/examreport/internal/platform/imaging"

// Department identifies one intake station. The value doubles as the JSON
// key of that station's section in a submission.
type Department string

const (
	DeptIdentity Department = "it"
	DeptENT      Department = "ent"
	DeptVision   Department = "vision"
	DeptGeneral  Department = "general"
	DeptDental   Department = "dental"
)

// Departments lists every station in merge order.
var Departments = []Department{DeptIdentity, DeptENT, DeptVision, DeptGeneral, DeptDental}

// Field renames one external intake key to its storage column.
type Field struct {
	External string
	Storage  string
	Required bool
}

// PhotoField is both the external and the storage name of the portrait.
const PhotoField = "photo"

// Storage keys read by the report for derived values.
const (
	KeyName           = "name"
	KeyToothPermanent = "tooth_perm"
	KeyToothPrimary   = "tooth_prim"
	KeyNailsDesc      = "nails_desc"
	KeyHairDesc       = "hair_desc"
	KeySkinDesc       = "skin_desc"
	KeyAllergyDesc    = "allergy_desc"
	KeySpeechDesc     = "cns_spch_desc"
	KeyMedicalOfficer = "medical_officer"
	KeyDentalRemarks  = "dental_rmk"
)

var identityFields = []Field{
	{"name", KeyName, true},
	{"div", "div", true},
	{"rollNo", "roll", true},
	{"adminNo", "admin", true},
	{"fatherName", "father", true},
	{"motherName", "mother", true},
	{"mobile", "mob", true},
	{"dob", "dob", true},
	{"gender", "gen", true},
	{"bloodGroup", "blood", true},
	{"medicalOfficer", KeyMedicalOfficer, false},
}

var entFields = []Field{
	{"left_ear_deformity", "le_def", true},
	{"left_ear_wax", "le_wax", true},
	{"left_ear_tympanic_membrane", "le_tm", true},
	{"left_ear_discharge", "le_dis", true},
	{"left_ear_normal_hearing", "le_nh", true},
	{"right_ear_deformity", "re_def", true},
	{"right_ear_wax", "re_wax", true},
	{"right_ear_tympanic_membrane", "re_tm", true},
	{"right_ear_discharge", "re_dis", true},
	{"right_ear_normal_hearing", "re_nh", true},
	{"left_nose_obstruction", "ln_obs", true},
	{"left_nose_discharge", "ln_dis", true},
	{"right_nose_obstruction", "rn_obs", true},
	{"right_nose_discharge", "rn_dis", true},
	{"throat_pain", "th_pain", true},
	{"neck_nodes", "neck", true},
	{"tonsils", "tons", true},
}

var visionFields = []Field{
	{"re_vision", "rev", true},
	{"le_vision", "lev", true},
	{"re_color_blindness", "rcb", true},
	{"le_color_blindness", "lcb", true},
	{"re_squint", "rsq", true},
	{"le_squint", "lsq", true},
}

var generalFields = []Field{
	{"height", "ht", true},
	{"weight", "wt", true},
	{"bmi", "bmi", true},
	{"nails", "nails", true},
	{"nails_desc", KeyNailsDesc, false},
	{"hair", "hair", true},
	{"hair_desc", KeyHairDesc, false},
	{"skin", "skin", true},
	{"skin_desc", KeySkinDesc, false},
	{"anemia_figure", "anem", true},
	{"allergy", "allergy", true},
	{"allergy_desc", KeyAllergyDesc, false},
	{"abdomen_soft", "ab_soft", true},
	{"abdomen_hard", "ab_hard", true},
	{"abdomen_distended", "ab_dist", true},
	{"abdomen_bowel_sound", "ab_bowel", true},
	{"cns_conscious", "cns_con", true},
	{"cns_oriented", "cns_ori", true},
	{"cns_playful", "cns_pl", true},
	{"cns_active", "cns_act", true},
	{"cns_alert", "cns_alrt", true},
	{"cns_speech", "cns_spch", true},
	{"cns_speech_desc", KeySpeechDesc, false},
	{"past_medical", "past_med", true},
	{"past_surgical", "past_surg", true},
	{"bp", "bp", true},
	{"pulse", "pulse", true},
	{"hip", "hip", true},
	{"waist", "waist", true},
}

var dentalFields = []Field{
	{"dental_extra_oral", "dental_ext", true},
	{"dental_remarks", KeyDentalRemarks, false},
	{"tooth_cavity_permanent", KeyToothPermanent, false},
	{"tooth_cavity_primary", KeyToothPrimary, false},
	{"plaque", "plaque", true},
	{"gum_inflammation", "gum_inf", true},
	{"stains", "stains", true},
	{"tooth_discoloration", "tooth_disc", true},
	{"tarter", "tarter", true},
	{"bad_breath", "bad_brth", true},
	{"gum_bleeding", "gum_bleed", true},
	{"soft_tissue", "soft_tiss", true},
	{"fluorosis", "fluor", true},
	{"malocclusion", "maloccl", true},
	{"root_stump", "root_stmp", true},
	{"missing_teeth", "miss_teeth", true},
}

var fieldTables = map[Department][]Field{
	DeptIdentity: identityFields,
	DeptENT:      entFields,
	DeptVision:   visionFields,
	DeptGeneral:  generalFields,
	DeptDental:   dentalFields,
}

// Fields returns a copy of the field table of d. The identity table does not
// include the photo, which is carried separately.
func Fields(d Department) []Field {
	table := fieldTables[d]
	out := make([]Field, len(table))
	copy(out, table)
	return out
}

// StorageKeys returns every scalar storage column in merge order.
func StorageKeys() []string {
	var keys []string
	for _, d := range Departments {
		for _, f := range fieldTables[d] {
			keys = append(keys, f.Storage)
		}
	}
	return keys
}

// ---------------------------------------------------------------------------
// Mappers
// ---------------------------------------------------------------------------

func mapFields(table []Field, sub Submission) Mapped {
	out := make(Mapped, len(table))
	for _, f := range table {
		out[f.Storage] = sub[f.External]
	}
	return out
}

// MapIdentity maps the identity section. The photo is nil when the
// submission carries none.
func MapIdentity(sub Submission) (Mapped, Photo) {
	var photo Photo
	if raw, ok := sub[PhotoField]; ok && raw != "" {
		photo = Photo(imaging.DecodePayload([]byte(raw)))
	}
	return mapFields(identityFields, sub), photo
}

func MapENT(sub Submission) Mapped     { return mapFields(entFields, sub) }
func MapVision(sub Submission) Mapped  { return mapFields(visionFields, sub) }
func MapGeneral(sub Submission) Mapped { return mapFields(generalFields, sub) }
func MapDental(sub Submission) Mapped  { return mapFields(dentalFields, sub) }
