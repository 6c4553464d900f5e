package mirror

import "slices"

type changeEntry struct {
	token Token
	fn    ChangeHandler
}

type errorEntry struct {
	token Token
	fn    ErrorHandler
}

// OnChange registers fn to be called after every fold that changed the
// collection. Handlers run in registration order.
func (s *Synchronizer) OnChange(fn ChangeHandler) Token {
	s.hmu.Lock()
	defer s.hmu.Unlock()

	s.nextToken++
	s.changeHandlers = append(s.changeHandlers, changeEntry{token: s.nextToken, fn: fn})
	return s.nextToken
}

// OnStreamError registers fn to be called for every stream fault.
func (s *Synchronizer) OnStreamError(fn ErrorHandler) Token {
	s.hmu.Lock()
	defer s.hmu.Unlock()

	s.nextToken++
	s.errorHandlers = append(s.errorHandlers, errorEntry{token: s.nextToken, fn: fn})
	return s.nextToken
}

// Remove unregisters the handler identified by token and reports whether it
// was registered.
func (s *Synchronizer) Remove(token Token) bool {
	s.hmu.Lock()
	defer s.hmu.Unlock()

	if i := slices.IndexFunc(s.changeHandlers, func(e changeEntry) bool { return e.token == token }); i >= 0 {
		s.changeHandlers = slices.Delete(s.changeHandlers, i, i+1)
		return true
	}
	if i := slices.IndexFunc(s.errorHandlers, func(e errorEntry) bool { return e.token == token }); i >= 0 {
		s.errorHandlers = slices.Delete(s.errorHandlers, i, i+1)
		return true
	}
	return false
}

func (s *Synchronizer) changeHandlerList() []ChangeHandler {
	s.hmu.RLock()
	defer s.hmu.RUnlock()

	fns := make([]ChangeHandler, len(s.changeHandlers))
	for i, e := range s.changeHandlers {
		fns[i] = e.fn
	}
	return fns
}

func (s *Synchronizer) errorHandlerList() []ErrorHandler {
	s.hmu.RLock()
	defer s.hmu.RUnlock()

	fns := make([]ErrorHandler, len(s.errorHandlers))
	for i, e := range s.errorHandlers {
		fns[i] = e.fn
	}
	return fns
}
