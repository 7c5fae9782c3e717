package connmgr

import (
	"github.com/vectorlog/client-go/operation"
	"github.com/vectorlog/client-go/wire"
)

// Factory builds a fresh Operation for a package that the claim rule
// could not attach to any existing one. Concrete Operation variants
// live outside the connection core; the manager only needs a way to
// produce one from the triple (pkg, client, deliverer).
type Factory func(pkg wire.PackageOut, client wire.ClientHandle, deliver operation.Deliverer) operation.Operation

// DefaultFactory builds a Subscription for a Subscribe message and a
// OneShot for everything else. It is sufficient for request/response
// commands and simple subscriptions; a richer client library would
// supply its own Factory recognizing its full command set.
func DefaultFactory(pkg wire.PackageOut, client wire.ClientHandle, deliver operation.Deliverer) operation.Operation {
	if pkg.Message.Kind() == wire.KindSubscribe {
		return operation.NewSubscription(pkg, client, deliver)
	}
	return operation.NewOneShot(pkg, client, deliver)
}
