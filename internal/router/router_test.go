package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := map[string]Location{
		"/":                  To(Dashboard),
		"":                   To(Dashboard),
		"/dashboard":         To(Dashboard),
		"/new-hiring":        To(NewHiring),
		"/profiles/":         To(Profiles),
		"/playground":        To(Playground),
		"/account":           To(Account),
		"/register":          To(Register),
		"/hiring/abc-123":    Hiring("abc-123"),
		"/hiring/":           To(Dashboard),
		"/nowhere":           To(Dashboard),
		"/login?from=%2Fx":   {Name: Login, From: "/x"},
		"/profiles?from=/x":  To(Profiles),
		"/hiring/a%2Fb":      Hiring("a/b"),
		"/dashboard/extra/x": To(Dashboard),
	}
	for in, want := range cases {
		assert.Equal(t, want, Parse(in), in)
	}
}

func TestPathRoundTrip(t *testing.T) {
	for _, loc := range []Location{To(Dashboard), Hiring("s 1"), {Name: Login, From: "/hiring/s1"}, To(Account)} {
		assert.Equal(t, loc, Parse(loc.Path()))
	}
}

func TestGuardRedirectsAnonymousWithFrom(t *testing.T) {
	d := Guard(Hiring("s1"), AuthView{})
	assert.False(t, d.Loading)
	assert.Equal(t, Login, d.Location.Name)
	assert.Equal(t, "/hiring/s1", d.Location.From)
	assert.Equal(t, Hiring("s1"), AfterLogin(d.Location))
}

func TestGuardShowsLoadingWhileValidating(t *testing.T) {
	d := Guard(To(Profiles), AuthView{Validating: true})
	assert.True(t, d.Loading)
	assert.Equal(t, To(Profiles), d.Location)

	d = Guard(To(Login), AuthView{Validating: true})
	assert.False(t, d.Loading, "public screens render during validation")
}

func TestGuardSendsSignedInUsersAwayFromLogin(t *testing.T) {
	auth := AuthView{Authenticated: true}
	assert.Equal(t, To(Dashboard), Guard(To(Login), auth).Location)
	assert.Equal(t, To(Dashboard), Guard(To(Register), auth).Location)
	assert.Equal(t, To(Playground), Guard(Location{Name: Login, From: "/playground"}, auth).Location)
	assert.Equal(t, To(Account), Guard(To(Account), auth).Location)
}

func TestAfterLoginIgnoresPublicFrom(t *testing.T) {
	assert.Equal(t, To(Dashboard), AfterLogin(Location{Name: Login, From: "/register"}))
	assert.Equal(t, To(Dashboard), AfterLogin(To(Login)))
}

func TestRouterHistory(t *testing.T) {
	auth := AuthView{Authenticated: true}
	r := New(To(Dashboard))
	r.Navigate(To(Profiles), auth)
	r.Navigate(Hiring("s1"), auth)
	assert.Equal(t, Hiring("s1"), r.Current())

	d, ok := r.Back(auth)
	assert.True(t, ok)
	assert.Equal(t, To(Profiles), d.Location)

	d, ok = r.Back(AuthView{})
	assert.True(t, ok)
	assert.Equal(t, Login, d.Location.Name)

	_, ok = r.Back(AuthView{})
	assert.False(t, ok)

	r.Replace(To(NewHiring), auth)
	assert.Equal(t, To(NewHiring), r.Current())
}
