package library

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Intervention is a user control signal for a running batch, delivered by
// dropping a control file into the library directory.
type Intervention int

const (
	InterventionPause  Intervention = iota // PAUSE file created
	InterventionResume                     // PAUSE file removed
	InterventionStop                       // STOP file created
)

// Watcher monitors the library directory for PAUSE and STOP control files
// during a long batch run.
type Watcher struct {
	Dir           string
	Interventions <-chan Intervention // read-only external channel

	interventions chan Intervention
	done          chan struct{}
	watcher       *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given library directory.
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Intervention, 16)
	return &Watcher{
		Dir:           dir,
		Interventions: ch,
		interventions: ch,
		done:          make(chan struct{}),
		watcher:       fw,
	}, nil
}

// Start begins watching the library directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and its channels.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // wait for loop to exit
	close(w.interventions)
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			switch filepath.Base(event.Name) {
			case "STOP":
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
					w.interventions <- InterventionStop
				}
			case "PAUSE":
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
					w.interventions <- InterventionPause
				} else if event.Has(fsnotify.Remove) {
					w.interventions <- InterventionResume
				}
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal for a batch run.
		}
	}
}
