package events_test

import (
	"testing"

	"github.com/learnblock/learnblock/foundation/events"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan events out to subscribers.")
	{
		t.Logf("\tTest 0:\tWhen two subscribers are registered.")
		{
			evts := events.New()

			a := evts.Acquire("a")
			b := evts.Acquire("b")
			if evts.Acquire("a") != a {
				t.Fatalf("\t%s\tTest 0:\tShould get the same channel for the same id.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the same channel for the same id.", success)

			evts.Send(events.Event{Type: events.TypeSnapshot, Version: 3})

			for _, ch := range []<-chan events.Event{a, b} {
				e := <-ch
				if e.Type != events.TypeSnapshot || e.Version != 3 || e.Time.IsZero() {
					t.Fatalf("\t%s\tTest 0:\tShould receive the event: %+v", failed, e)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould deliver the event to every subscriber.", success)

			if err := evts.Release("a"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to release: %s", failed, err)
			}
			if _, open := <-a; open {
				t.Fatalf("\t%s\tTest 0:\tShould close a released channel.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould close a released channel.", success)

			if err := evts.Release("a"); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould fail to release twice.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould fail to release twice.", success)

			evts.Shutdown()
			if _, open := <-b; open || evts.Count() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould close everything on shutdown.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould close everything on shutdown.", success)
		}
	}
}
