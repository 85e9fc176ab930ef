package taxonomy

import "github.com/crimson-sun/leafdoc/internal/model"

// DefaultEntries returns the built-in diagnosis table that ships with leafdoc,
// one entry per model label.
func DefaultEntries() []Entry {
	const (
		pepper = "Capsicum annuum"
		potato = "Solanum tuberosum"
		tomato = "Solanum lycopersicum"
	)
	return []Entry{
		{Label: "Pepper__bell___Bacterial_spot", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Bell Pepper", Taxonomy: pepper, Status: model.StatusDiseased,
			Disease:        "Bacterial Spot",
			Cause:          "Bacterium Xanthomonas campestris",
			DeficiencyNote: "May resemble magnesium deficiency",
			Description:    "Small, water-soaked spots that enlarge and turn brown with yellow halos",
		}},
		{Label: "Pepper__bell___healthy", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Bell Pepper", Taxonomy: pepper, Status: model.StatusHealthy,
			Disease:        "None",
			Cause:          "N/A",
			DeficiencyNote: "N/A",
			Description:    "No visible disease symptoms",
		}},
		{Label: "Potato___Early_blight", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Potato", Taxonomy: potato, Status: model.StatusDiseased,
			Disease:        "Early Blight",
			Cause:          "Fungus Alternaria solani",
			DeficiencyNote: "Possible potassium deficiency if severe",
			Description:    "Brown concentric spots on leaves with yellow margins",
		}},
		{Label: "Potato___healthy", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Potato", Taxonomy: potato, Status: model.StatusHealthy,
			Disease:        "None",
			Cause:          "N/A",
			DeficiencyNote: "N/A",
			Description:    "No symptoms observed",
		}},
		{Label: "Potato___Late_blight", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Potato", Taxonomy: potato, Status: model.StatusDiseased,
			Disease:        "Late Blight",
			Cause:          "Oomycete Phytophthora infestans",
			DeficiencyNote: "May resemble calcium deficiency",
			Description:    "Large, irregular brown lesions with white mold underneath leaves",
		}},
		{Label: "Tomato__Target_Spot", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusDiseased,
			Disease:        "Target Spot",
			Cause:          "Fungus Corynespora cassiicola",
			DeficiencyNote: "May mimic potassium or magnesium deficiency",
			Description:    "Dark, circular spots with concentric rings, especially on older leaves",
		}},
		{Label: "Tomato__Tomato_mosaic_virus", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusDiseased,
			Disease:        "Tomato Mosaic Virus",
			Cause:          "Tobamovirus",
			DeficiencyNote: "Can be confused with iron deficiency",
			Description:    "Mottled or mosaic light/dark green leaf patterns with distortion",
		}},
		{Label: "Tomato__Tomato_Yellow_Leaf_Curl_Virus", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusDiseased,
			Disease:        "Tomato Yellow Leaf Curl Virus",
			Cause:          "Begomovirus transmitted by whiteflies",
			DeficiencyNote: "May resemble nitrogen deficiency",
			Description:    "Upward leaf curling, yellowing, stunted growth",
		}},
		{Label: "Tomato_Bacterial_spot", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusDiseased,
			Disease:        "Bacterial Spot",
			Cause:          "Xanthomonas spp.",
			DeficiencyNote: "May resemble salt stress or toxicity",
			Description:    "Dark, greasy-looking leaf spots, may merge and kill leaves",
		}},
		{Label: "Tomato_Early_blight", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusDiseased,
			Disease:        "Early Blight",
			Cause:          "Alternaria solani",
			DeficiencyNote: "May mimic magnesium deficiency",
			Description:    "Dark brown spots with concentric rings, lower leaf drop",
		}},
		{Label: "Tomato_healthy", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusHealthy,
			Disease:        "None",
			Cause:          "N/A",
			DeficiencyNote: "N/A",
			Description:    "No symptoms; normal leaf and stem appearance",
		}},
		{Label: "Tomato_Late_blight", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusDiseased,
			Disease:        "Late Blight",
			Cause:          "Phytophthora infestans",
			DeficiencyNote: "May resemble bacterial canker in severe stages",
			Description:    "Large, gray-green water-soaked lesions, white mold under humid conditions",
		}},
		{Label: "Tomato_Leaf_Mold", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusDiseased,
			Disease:        "Leaf Mold",
			Cause:          "Fungus Passalora fulva (Cladosporium)",
			DeficiencyNote: "Can be confused with aging leaves",
			Description:    "Yellow patches on top of leaves and olive-green mold underneath",
		}},
		{Label: "Tomato_Septoria_leaf_spot", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusDiseased,
			Disease:        "Septoria Leaf Spot",
			Cause:          "Fungus Septoria lycopersici",
			DeficiencyNote: "May be confused with nutrient burn or chemical damage",
			Description:    "Small, circular spots with dark brown margins and gray centers",
		}},
		{Label: "Tomato_Spider_mites_Two_spotted_spider_mite", DiagnosisRecord: model.DiagnosisRecord{
			Plant: "Tomato", Taxonomy: tomato, Status: model.StatusDiseased,
			Disease:        "Spider Mite Infestation",
			Cause:          "Tetranychus urticae (Two-Spotted Spider Mite)",
			DeficiencyNote: "May resemble chlorosis or zinc deficiency",
			Description:    "Stippled yellow leaves with fine webbing, typically on undersides",
		}},
	}
}
