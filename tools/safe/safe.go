package safe

import "chatline/logger"

// Go starts a goroutine that recovers from panics so a misbehaving
// handler never takes down the workers serving other connections.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
