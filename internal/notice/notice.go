// Package notice is the toast shown to the visitor after an action.
package notice

const (
	VariantDefault     = "default"
	VariantDestructive = "destructive"
)

type Notice struct {
	Message string `json:"message"`
	Variant string `json:"variant"`
}

func Default(msg string) *Notice { return &Notice{Message: msg, Variant: VariantDefault} }

func Destructive(msg string) *Notice { return &Notice{Message: msg, Variant: VariantDestructive} }
