package replicate

import "github.com/go-zookeeper/zk"

// Conn is the subset of *zk.Conn the replicator needs: a plain read and a
// watched read. Narrowing to this interface is what lets
// replicator_test.go replay the spec's scenarios against an in-memory fake
// instead of a real ZooKeeper ensemble.
type Conn interface {
	Get(path string) ([]byte, error)
	GetW(path string) ([]byte, <-chan zk.Event, error)
}

// ZKConn adapts a real *zk.Conn to Conn, discarding the *zk.Stat neither the
// replicator nor its callers need.
type ZKConn struct {
	*zk.Conn
}

func (c ZKConn) Get(path string) ([]byte, error) {
	data, _, err := c.Conn.Get(path)
	return data, err
}

func (c ZKConn) GetW(path string) ([]byte, <-chan zk.Event, error) {
	data, _, ev, err := c.Conn.GetW(path)
	return data, ev, err
}
