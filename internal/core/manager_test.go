// Licensed under the MIT License. See LICENSE file in the project root for details.

package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func retainedSet(ctx context.Context, r Registry[string]) map[string]bool {
	set := make(map[string]bool)
	for _, h := range r.RetainedHandles(ctx) {
		set[h] = true
	}
	return set
}

func handles(n int) []string {
	hs := make([]string, n)
	for i := range hs {
		hs[i] = fmt.Sprintf("loop%d", i)
	}
	return hs
}

func TestDisabledAging(t *testing.T) {
	Convey("Given a registry with max age 0", t, func() {
		ctx := context.Background()
		r := New[string]()
		So(r.Configure(ctx, 0, 1), ShouldBeNil)

		Convey("When touching 10 handles interleaved with advances", func() {
			hs := handles(10)
			for _, h := range hs {
				r.Touch(ctx, h)
				So(r.Advance(ctx), ShouldBeEmpty)
			}

			Convey("Then every handle is still retained", func() {
				So(r.Len(ctx), ShouldEqual, 10)
				set := retainedSet(ctx, r)
				for _, h := range hs {
					So(set[h], ShouldBeTrue)
				}
			})

			Convey("And the generation counter kept growing", func() {
				So(r.Generation(ctx), ShouldEqual, 10)
			})
		})

		Convey("When the check interval is large, the behavior is identical", func() {
			So(r.Configure(ctx, 0, 7), ShouldBeNil)
			hs := handles(20)
			for _, h := range hs {
				r.Touch(ctx, h)
				So(r.Advance(ctx), ShouldBeEmpty)
			}
			So(r.Len(ctx), ShouldEqual, 20)
		})
	})
}

func TestBasicAging(t *testing.T) {
	Convey("Given a registry with max age 4, check interval 1", t, func() {
		ctx := context.Background()
		r := New[string]()
		So(r.Configure(ctx, 4, 1), ShouldBeNil)

		Convey("When touching h0..h9, advancing after each", func() {
			hs := handles(10)
			for _, h := range hs {
				r.Touch(ctx, h)
				r.Advance(ctx)
			}

			Convey("Then only h7, h8, h9 remain", func() {
				set := retainedSet(ctx, r)
				So(len(set), ShouldEqual, 3)
				So(set["loop7"], ShouldBeTrue)
				So(set["loop8"], ShouldBeTrue)
				So(set["loop9"], ShouldBeTrue)
			})
		})
	})
}

func TestSingleHandleAging(t *testing.T) {
	Convey("Given a registry with max age 4, check interval 1", t, func() {
		ctx := context.Background()
		r := New[string]()
		So(r.Configure(ctx, 4, 1), ShouldBeNil)

		Convey("When touching once and advancing ten times", func() {
			r.Touch(ctx, "loop")

			for i := 1; i <= 10; i++ {
				evicted := r.Advance(ctx)
				if i < 4 {
					So(evicted, ShouldBeEmpty)
					So(r.IsAlive(ctx, "loop"), ShouldBeTrue)
				} else if i == 4 {
					// Untouched for exactly maxAge generations: evicted on
					// the next eligible sweep, not the one after.
					So(evicted, ShouldResemble, []string{"loop"})
					So(r.IsAlive(ctx, "loop"), ShouldBeFalse)
				} else {
					So(evicted, ShouldBeEmpty)
					So(r.IsAlive(ctx, "loop"), ShouldBeFalse)
				}
			}
			So(r.Len(ctx), ShouldEqual, 0)
		})
	})
}

func TestRefreshExtendsLifetime(t *testing.T) {
	Convey("Given a registry with max age 4, check interval 1", t, func() {
		ctx := context.Background()
		r := New[string]()
		So(r.Configure(ctx, 4, 1), ShouldBeNil)

		Convey("When a handle is re-touched before reaching max age", func() {
			r.Touch(ctx, "loop")
			r.Advance(ctx)
			r.Advance(ctx)
			r.Advance(ctx)
			r.Touch(ctx, "loop") // age resets to 0 at generation 3

			Convey("Then it survives the generation it would have died at", func() {
				So(r.Advance(ctx), ShouldBeEmpty) // generation 4
				So(r.IsAlive(ctx, "loop"), ShouldBeTrue)
			})

			Convey("And it is evicted 4 generations after the refresh", func() {
				for i := 0; i < 3; i++ {
					So(r.Advance(ctx), ShouldBeEmpty)
				}
				So(r.Advance(ctx), ShouldResemble, []string{"loop"}) // generation 7
			})
		})
	})
}

func TestInterleavedKeepAlive(t *testing.T) {
	Convey("Given a registry with max age 4, check interval 1", t, func() {
		ctx := context.Background()
		r := New[string]()
		So(r.Configure(ctx, 4, 1), ShouldBeNil)

		Convey("When even-numbered handles are kept alive by re-touching", func() {
			hs := handles(10)
			for i := range hs {
				r.Touch(ctx, hs[i])
				r.Advance(ctx)
				for j := 0; j < i; j += 2 {
					So(r.IsAlive(ctx, hs[j]), ShouldBeTrue)
					r.Touch(ctx, hs[j])
				}
			}

			Convey("Then only old odd-numbered handles were evicted", func() {
				set := retainedSet(ctx, r)
				for i := range hs {
					if i < 7 && i%2 != 0 {
						So(set[hs[i]], ShouldBeFalse)
					} else {
						So(set[hs[i]], ShouldBeTrue)
					}
				}
			})
		})
	})
}

func TestMonotonicCounter(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		ctx := context.Background()
		r := New[string]()

		Convey("Then the counter starts at 0", func() {
			So(r.Generation(ctx), ShouldEqual, 0)
		})

		Convey("When mixing touches, configures, and advances", func() {
			advances := 0
			for i := 0; i < 25; i++ {
				r.Touch(ctx, fmt.Sprintf("loop%d", i%5))
				if i%3 == 0 {
					So(r.Configure(ctx, i%6, 1+i%4), ShouldBeNil)
				}
				if i%2 == 0 {
					r.Advance(ctx)
					advances++
				}
				r.IsAlive(ctx, "loop0")
			}

			Convey("Then the counter equals the number of advances", func() {
				So(r.Generation(ctx), ShouldEqual, advances)
			})
		})
	})
}

func TestEvictionAndReinsertion(t *testing.T) {
	Convey("Given a registry with max age 2, check interval 1", t, func() {
		ctx := context.Background()
		r := New[string]()
		So(r.Configure(ctx, 2, 1), ShouldBeNil)

		Convey("When a handle is evicted", func() {
			r.Touch(ctx, "loop")
			r.Advance(ctx)
			evicted := r.Advance(ctx)
			So(evicted, ShouldResemble, []string{"loop"})
			So(r.IsAlive(ctx, "loop"), ShouldBeFalse)

			Convey("Then re-touching it starts over at age 0", func() {
				r.Touch(ctx, "loop")
				So(r.IsAlive(ctx, "loop"), ShouldBeTrue)

				// No memory of prior history: a full max age again.
				So(r.Advance(ctx), ShouldBeEmpty)
				So(r.Advance(ctx), ShouldResemble, []string{"loop"})
			})
		})
	})
}

func TestIdempotentTouch(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		ctx := context.Background()
		r := New[string]()

		Convey("When touching the same handle twice in one generation", func() {
			r.Touch(ctx, "loop")
			r.Touch(ctx, "loop")

			Convey("Then exactly one record exists", func() {
				So(r.Len(ctx), ShouldEqual, 1)
				So(r.RetainedHandles(ctx), ShouldResemble, []string{"loop"})
			})

			Convey("And metrics report one insert and one refresh", func() {
				snap := r.Metrics(ctx)
				So(snap.Operations.Insert, ShouldEqual, 1)
				So(snap.Operations.Refresh, ShouldEqual, 1)
			})
		})
	})
}

func TestCheckIntervalAmortization(t *testing.T) {
	Convey("Given a registry with max age 2, check interval 5", t, func() {
		ctx := context.Background()
		r := New[string]()
		So(r.Configure(ctx, 2, 5), ShouldBeNil)

		Convey("When a handle goes stale between sweeps", func() {
			r.Touch(ctx, "loop") // generation 0

			Convey("Then it transiently outlives max age until generation 5", func() {
				for i := 1; i <= 4; i++ {
					So(r.Advance(ctx), ShouldBeEmpty)
				}
				// Age is 4 >= 2, but no sweep has been eligible yet.
				So(r.IsAlive(ctx, "loop"), ShouldBeTrue)

				So(r.Advance(ctx), ShouldResemble, []string{"loop"})
				So(r.IsAlive(ctx, "loop"), ShouldBeFalse)
			})
		})

		Convey("When handles stay fresh at sweep time they survive", func() {
			for i := 1; i <= 9; i++ {
				r.Touch(ctx, "loop")
				So(r.Advance(ctx), ShouldBeEmpty)
			}
			So(r.IsAlive(ctx, "loop"), ShouldBeTrue)
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		ctx := context.Background()
		r := New[string]()

		Convey("Negative max age is rejected", func() {
			err := r.Configure(ctx, -1, 1)
			So(errors.Is(err, ErrMaxAge), ShouldBeTrue)
		})

		Convey("Check interval below 1 is rejected", func() {
			err := r.Configure(ctx, 4, 0)
			So(errors.Is(err, ErrCheckInterval), ShouldBeTrue)

			err = r.Configure(ctx, 4, -3)
			So(errors.Is(err, ErrCheckInterval), ShouldBeTrue)
		})

		Convey("A failed configure leaves the prior policy in place", func() {
			So(r.Configure(ctx, 2, 1), ShouldBeNil)
			So(r.Configure(ctx, -1, 0), ShouldNotBeNil)

			// The old policy (max age 2) still applies.
			r.Touch(ctx, "loop")
			r.Advance(ctx)
			So(r.Advance(ctx), ShouldResemble, []string{"loop"})
		})

		Convey("Configure never triggers a sweep", func() {
			So(r.Configure(ctx, 4, 1), ShouldBeNil)
			r.Touch(ctx, "loop")
			r.Advance(ctx)
			r.Advance(ctx)

			// Age 2 is stale under the tightened policy, but only Advance
			// may evict.
			for i := 0; i < 10; i++ {
				So(r.Configure(ctx, 1, 1), ShouldBeNil)
			}
			So(r.IsAlive(ctx, "loop"), ShouldBeTrue)

			So(r.Advance(ctx), ShouldResemble, []string{"loop"})
		})

		Convey("Reconfiguring mid-sequence takes effect on the next advance", func() {
			So(r.Configure(ctx, 10, 1), ShouldBeNil)
			r.Touch(ctx, "loop")
			r.Advance(ctx)
			r.Advance(ctx)
			So(r.IsAlive(ctx, "loop"), ShouldBeTrue)

			// Tighten the policy: age 2 is now >= max age 2.
			So(r.Configure(ctx, 2, 1), ShouldBeNil)
			So(r.Advance(ctx), ShouldResemble, []string{"loop"})
		})
	})
}

func TestEvictionHandler(t *testing.T) {
	Convey("Given a registry with an eviction handler", t, func() {
		ctx := context.Background()
		freed := make(map[string]int)
		r := New[string](WithEvictionHandler[string](func(h string) {
			freed[h]++
		}))
		So(r.Configure(ctx, 2, 1), ShouldBeNil)

		Convey("When handles age out", func() {
			r.Touch(ctx, "a")
			r.Touch(ctx, "b")
			r.Advance(ctx)
			r.Touch(ctx, "b") // b stays fresh
			evicted := r.Advance(ctx)

			Convey("Then the handler fires exactly once per evicted handle", func() {
				So(evicted, ShouldResemble, []string{"a"})
				So(freed, ShouldResemble, map[string]int{"a": 1})
			})

			Convey("And never again for already-evicted handles", func() {
				for i := 0; i < 5; i++ {
					r.Advance(ctx)
				}
				So(freed["a"], ShouldEqual, 1)
			})
		})
	})
}

func TestCapacityHint(t *testing.T) {
	Convey("Given a registry presized for 1000 handles", t, func() {
		ctx := context.Background()
		r := New[string](WithCapacityHint[string](1000))

		Convey("Then it behaves like any other registry", func() {
			r.Touch(ctx, "loop")
			So(r.Len(ctx), ShouldEqual, 1)
			So(r.IsAlive(ctx, "loop"), ShouldBeTrue)
		})
	})
}

func TestRetainedHandlesSnapshot(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		ctx := context.Background()
		r := New[string]()

		Convey("Then the initial snapshot is empty", func() {
			So(r.RetainedHandles(ctx), ShouldBeEmpty)
		})

		Convey("When the snapshot is mutated by the caller", func() {
			r.Touch(ctx, "a")
			snapshot := r.RetainedHandles(ctx)
			snapshot[0] = "tampered"

			Convey("Then the registry is unaffected", func() {
				So(r.IsAlive(ctx, "a"), ShouldBeTrue)
				So(r.IsAlive(ctx, "tampered"), ShouldBeFalse)
			})
		})
	})
}
