// Package leafdoc diagnoses plant leaf diseases from photos. It classifies a
// JPEG or PNG image with an ONNX model into one of 15 pepper, potato and
// tomato classes and resolves the class to a diagnosis record.
//
// Quick start:
//
//	d, err := leafdoc.New(leafdoc.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	f, _ := os.Open("leaf.jpg")
//	defer f.Close()
//	diag, _ := d.Diagnose(f)
//	fmt.Println(diag.Plant, diag.Disease) // Potato None
//	fmt.Print(d.Report(diag))
//
// The Leafdoc instance is safe for concurrent use. Create once, reuse across
// requests.
package leafdoc
