package entities

// User is a forge account.
type User struct {
	Login string
	Name  string
	Email string
}

// Is reports whether both values denote the same forge account.
func (u User) Is(other User) bool {
	return u.Login != "" && u.Login == other.Login
}

// Ident is a name/email pair recorded as author or committer of a revision.
type Ident struct {
	Name  string
	Email string
}

func (i Ident) String() string {
	return i.Name + " <" + i.Email + ">"
}
