package transport

// Frame is one inbound message delivered on a subscription. A frame with a
// non-nil Err is terminal: the underlying connection died and the channel
// closes right after it.
type Frame struct {
	Destination string
	Body        []byte
	Err         error
}

type Subscription interface {
	C() <-chan Frame
	Unsubscribe() error
}

// Transport is the pub/sub connection to the quiz server. Frames on a
// single destination arrive in the order the server sent them; there is no
// ordering guarantee across destinations.
type Transport interface {
	Subscribe(destination string) (Subscription, error)
	Publish(destination string, body []byte) error
	Close() error
}
