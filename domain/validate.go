package domain

// Admit is the record gate: a record is dropped only when it has no name and its author fell
// back to the anonymous sentinel.
func Admit(name, author string) error {
	if name == EmptyBookTitle && author == AnonymousAuthor {
		return ErrInadmissible
	}
	return nil
}
