package main

// SymbolID identifies an interned name. Ids are dense and start at 0.
type SymbolID int

// NoSymbol is returned by lookups that miss.
const NoSymbol SymbolID = -1

// SymbolTable interns names. Names are unique; adding one twice fails.
type SymbolTable struct {
	names []string
	ids   map[string]SymbolID
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{ids: make(map[string]SymbolID)}
}

// Find returns the id of name, or NoSymbol.
func (st *SymbolTable) Find(name string) SymbolID {
	if id, ok := st.ids[name]; ok {
		return id
	}
	return NoSymbol
}

// Add interns a new name. If the name already exists the table is left
// untouched and NoSymbol is returned together with ErrDuplicateSymbol.
func (st *SymbolTable) Add(name string) (SymbolID, error) {
	if _, ok := st.ids[name]; ok {
		return NoSymbol, ErrDuplicateSymbol
	}
	id := SymbolID(len(st.names))
	st.names = append(st.names, name)
	st.ids[name] = id
	return id, nil
}

// FindOrAdd returns the existing id for name, adding it first if needed.
func (st *SymbolTable) FindOrAdd(name string) SymbolID {
	if id := st.Find(name); id != NoSymbol {
		return id
	}
	id, _ := st.Add(name)
	return id
}

// Name returns the interned name for id, or "" for ids the table never
// handed out.
func (st *SymbolTable) Name(id SymbolID) string {
	if id < 0 || int(id) >= len(st.names) {
		return ""
	}
	return st.names[id]
}

func (st *SymbolTable) Len() int {
	return len(st.names)
}
