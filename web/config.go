package web

type Options struct {
	// Routes are registered on the engine when the server initializes.
	Routes []RouteContribution
	// Middlewares run after the built-in request id, recovery and access log.
	Middlewares []Handler
	// QuietPaths are route patterns left out of the access log.
	QuietPaths []string
}

type Option func(*Options)

func WithRoutes(f RouteContribution) Option {
	return func(o *Options) { o.Routes = append(o.Routes, f) }
}

func WithMiddlewares(m ...Handler) Option {
	return func(o *Options) { o.Middlewares = append(o.Middlewares, m...) }
}

func WithQuietPaths(paths ...string) Option {
	return func(o *Options) { o.QuietPaths = append(o.QuietPaths, paths...) }
}
