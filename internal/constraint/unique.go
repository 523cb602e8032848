package constraint

// Unique marks an attribute as unique. It is advisory: enforcement belongs to
// the storage layer, so Check always succeeds.
type Unique struct{}

func (Unique) Kind() Kind        { return KindUnique }
func (Unique) Check(any) bool    { return true }
func (Unique) Serialize() string { return "" }
func (Unique) String() string    { return "unique" }

// ParseUnique accepts the (empty) text form of a unique constraint.
func ParseUnique(text string) (Unique, error) {
	if text != "" {
		return Unique{}, invalid(KindUnique, text, "unique takes no parameters")
	}
	return Unique{}, nil
}
