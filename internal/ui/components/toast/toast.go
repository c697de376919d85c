package toast

import (
	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"
)

type Variant string

const (
	VariantDefault Variant = "default"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantInfo    Variant = "info"
)

type Props struct {
	Title       string
	Description string
	Variant     Variant
	Icon        bool
	Dismissible bool
	Class       string
}

const baseClass = "toast flex items-start gap-3 rounded-md border p-4 shadow-md bg-white text-gray-900"

var variantClass = map[Variant]string{
	VariantSuccess: "border-green-500 bg-green-50 text-green-900",
	VariantError:   "border-red-500 bg-red-50 text-red-900",
	VariantInfo:    "border-blue-500 bg-blue-50 text-blue-900",
}

var icons = map[Variant]string{
	VariantSuccess: "✓",
	VariantError:   "!",
	VariantInfo:    "i",
}

// Class merges the base, variant and caller classes. Later classes win
// conflicts, so Props.Class can override the variant colours.
func Class(p Props) string {
	return twmerge.Merge(baseClass, variantClass[p.Variant], p.Class)
}

func role(v Variant) string {
	if v == VariantError {
		return "alert"
	}
	return "status"
}

func Success(description string) templ.Component {
	return Toast(Props{Title: "Success", Description: description, Variant: VariantSuccess, Icon: true, Dismissible: true})
}

func Error(description string) templ.Component {
	return Toast(Props{Title: "Error", Description: description, Variant: VariantError, Icon: true, Dismissible: true})
}
