/**
 * @description
 * Auth guard primitives.
 * SignedIn/SignedOut re-run their callback on every auth recompute while the
 * condition holds; the redirect variants fire exactly once per transition
 * into the condition, not once per recompute. Nothing runs while the state
 * is still Loading.
 *
 * All four primitives consult the same bypass switch: with bypass active the
 * signed-in family behaves as permanently signed in and the signed-out
 * family never runs.
 */

package client

// SignedIn invokes render on every auth recompute that finds an active
// session. The returned function stops the guard.
func (c *Client) SignedIn(render func(state AuthState)) func() {
	if c.bypass {
		render(AuthState{Status: AuthSignedIn})
		return func() {}
	}
	return c.guard(func(state AuthState) bool { return state.Status == AuthSignedIn }, render)
}

// SignedOut invokes render on every auth recompute that finds no session
func (c *Client) SignedOut(render func(state AuthState)) func() {
	if c.bypass {
		return func() {}
	}
	return c.guard(func(state AuthState) bool { return state.Status == AuthSignedOut }, render)
}

// RedirectSignedIn fires onRedirect once each time the session transitions
// into SignedIn
func (c *Client) RedirectSignedIn(onRedirect func()) func() {
	if c.bypass {
		return func() {}
	}
	return c.redirect(func(state AuthState) bool { return state.Status == AuthSignedIn }, onRedirect)
}

// RedirectSignedOut fires onRedirect once each time the session transitions
// into SignedOut
func (c *Client) RedirectSignedOut(onRedirect func()) func() {
	if c.bypass {
		return func() {}
	}
	return c.redirect(func(state AuthState) bool { return state.Status == AuthSignedOut }, onRedirect)
}

// guard runs render for every state notification matching the condition
func (c *Client) guard(condition func(AuthState) bool, render func(AuthState)) func() {
	states, unsubscribe := c.WatchAuth()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				if condition(state) {
					render(state)
				}
			}
		}
	}()

	return func() {
		close(done)
		unsubscribe()
	}
}

// redirect runs onRedirect on false-to-true edges of the condition only.
// Loading states leave the previous edge value untouched, so a
// Loading-to-SignedIn resolution still counts as one transition.
func (c *Client) redirect(condition func(AuthState) bool, onRedirect func()) func() {
	states, unsubscribe := c.WatchAuth()

	done := make(chan struct{})
	go func() {
		holding := false
		for {
			select {
			case <-done:
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				if state.Status == AuthLoading {
					continue
				}
				now := condition(state)
				if now && !holding {
					onRedirect()
				}
				holding = now
			}
		}
	}()

	return func() {
		close(done)
		unsubscribe()
	}
}
