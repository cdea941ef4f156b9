package filestore

import "strconv"

// Identifier names a stored file either by its catalog id or by its file
// name. Handlers build one from the request URL and the store resolves it.
type Identifier struct {
	ID      int64
	Name    string
	Numeric bool
}

// ByID identifies a file by its catalog id.
func ByID(id int64) Identifier {
	return Identifier{ID: id, Numeric: true}
}

// ByName identifies a file by its name in the managed directory.
func ByName(name string) Identifier {
	return Identifier{Name: name}
}

func (id Identifier) String() string {
	if id.Numeric {
		return "#" + strconv.FormatInt(id.ID, 10)
	}
	return "'" + id.Name + "'"
}
