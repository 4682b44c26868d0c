package ws

import "hash/fnv"

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout distributes payloads to many connections through a worker
// pool. Jobs sharing a key always land on the same worker, so payloads
// for one stream (a conversation, the presence snapshot feed) reach
// each connection's queue in submission order while distinct streams
// still spread across workers.
type Fanout struct {
	workers []chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{workers: make([]chan fanoutJob, workers)}
	for i := range f.workers {
		ch := make(chan fanoutJob, queue)
		f.workers[i] = ch
		go func() {
			for job := range ch {
				for _, c := range job.conns {
					c.Enqueue(job.payload)
				}
			}
		}()
	}
	return f
}

// Broadcast queues one payload for the given connections, serialized
// per key.
func (f *Fanout) Broadcast(key string, conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	f.workers[int(h.Sum32())%len(f.workers)] <- fanoutJob{conns: conns, payload: payload}
}

func (f *Fanout) Close() {
	for _, ch := range f.workers {
		close(ch)
	}
}
