package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by each feature's HTTP layer to register its
// routes on the shared router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
