package symbols

// Strategy is one step of a scope lookup. Find returns the candidates it
// contributes from scope; it may continue the search in other scopes
// through s.In, which shares the visited set.
type Strategy struct {
	Name string
	Find func(s *Search, scope *Symbol) []*Symbol
}

// LookupChain is an ordered list of strategies. The first strategy that
// yields a candidate ends the lookup in a scope.
type LookupChain []Strategy

// Search is the state of one lookup.
type Search struct {
	Name  string
	Kinds []Kind

	chain LookupChain
	seen  map[*Symbol]bool
}

// OwnChildren matches the direct children of the scope.
var OwnChildren = Strategy{
	Name: "own-children",
	Find: func(s *Search, scope *Symbol) []*Symbol {
		return scope.Local(s.Name, s.Kinds...)
	},
}

// MainSubroutine searches a child procedure named MAIN.
var MainSubroutine = Strategy{
	Name: "main-subroutine",
	Find: func(s *Search, scope *Symbol) []*Symbol {
		var out []*Symbol
		for _, main := range scope.Local("MAIN", KindProcedure) {
			out = append(out, s.In(main)...)
		}
		return out
	},
}

// IncludedScopes searches the scopes included into the scope.
var IncludedScopes = Strategy{
	Name: "included-scopes",
	Find: func(s *Search, scope *Symbol) []*Symbol {
		var out []*Symbol
		for _, inc := range scope.Included() {
			out = append(out, s.In(inc)...)
		}
		return out
	},
}

// ParentScope delegates to the enclosing scope.
var ParentScope = Strategy{
	Name: "parent-scope",
	Find: func(s *Search, scope *Symbol) []*Symbol {
		return s.In(scope.Parent)
	},
}

// DefaultChain is the lookup order used for Easytrieve references.
var DefaultChain = LookupChain{OwnChildren, MainSubroutine, IncludedScopes, ParentScope}

// Lookup searches name among the given kinds, starting in scope.
func (c LookupChain) Lookup(scope *Symbol, name string, kinds ...Kind) []*Symbol {
	s := &Search{Name: name, Kinds: kinds, chain: c, seen: make(map[*Symbol]bool)}
	return s.In(scope)
}

// Lookup runs DefaultChain.
func Lookup(scope *Symbol, name string, kinds ...Kind) []*Symbol {
	return DefaultChain.Lookup(scope, name, kinds...)
}

// In runs the chain in scope. A scope already visited by this search
// yields nothing.
func (s *Search) In(scope *Symbol) []*Symbol {
	if scope == nil || s.seen[scope] {
		return nil
	}
	s.seen[scope] = true
	for _, st := range s.chain {
		if found := st.Find(s, scope); len(found) > 0 {
			return found
		}
	}
	return nil
}
