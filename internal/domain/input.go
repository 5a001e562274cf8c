package domain

// ActiveInput models the five text fields of the conversion screen.
// At most one field holds text at a time: setting any field clears the other
// four, so "last edited wins" is enforced structurally.
type ActiveInput struct {
	fields map[Symbol]string
}

// NewActiveInput returns an input state with all fields empty.
func NewActiveInput() *ActiveInput {
	return &ActiveInput{fields: make(map[Symbol]string, len(AllSymbols))}
}

// Set records text for one field and clears the rest.
// Setting empty text just clears that field.
func (in *ActiveInput) Set(s Symbol, text string) error {
	if !s.Valid() {
		return ErrUnknownSymbol
	}
	for k := range in.fields {
		delete(in.fields, k)
	}
	if text != "" {
		in.fields[s] = text
	}
	return nil
}

// Active returns the currently edited field and its raw text.
// ok is false when every field is empty.
func (in *ActiveInput) Active() (Symbol, string, bool) {
	for s, text := range in.fields {
		return s, text, true
	}
	return "", "", false
}

// Text returns the raw text of one field, empty unless it is the active one.
func (in *ActiveInput) Text(s Symbol) string {
	return in.fields[s]
}
