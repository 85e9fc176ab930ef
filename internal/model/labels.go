package model

// NumClasses is the length of the plant disease model's output vector.
const NumClasses = 15

// labels is the ordered class list of the plant disease model. Index i names
// the i-th entry of the model's output vector. The classifier asserts at load
// time that the output dimension equals NumClasses, and the taxonomy asserts
// that every entry has exactly one record.
var labels = [NumClasses]string{
	"Pepper__bell___Bacterial_spot",
	"Pepper__bell___healthy",
	"Potato___Early_blight",
	"Potato___healthy",
	"Potato___Late_blight",
	"Tomato__Target_Spot",
	"Tomato__Tomato_mosaic_virus",
	"Tomato__Tomato_Yellow_Leaf_Curl_Virus",
	"Tomato_Bacterial_spot",
	"Tomato_Early_blight",
	"Tomato_healthy",
	"Tomato_Late_blight",
	"Tomato_Leaf_Mold",
	"Tomato_Septoria_leaf_spot",
	"Tomato_Spider_mites_Two_spotted_spider_mite",
}

// Labels returns a copy of the model's label set in output order.
func Labels() []string {
	out := make([]string, NumClasses)
	copy(out, labels[:])
	return out
}
