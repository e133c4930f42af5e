// Package guice is a dependency injection container for session-based web
// applications. Bindings are grouped into modules, carry one of five
// lifetimes (Singleton, SessionScoped, UIScoped, ViewScoped, Transient)
// and are resolved through an Injector built from a Collection.
//
// Singletons are managed by an embedded dig container. Session, UI and
// view scoped instances live in caches keyed first by session, then by
// the current UI or view instance. While a UI or view is still being
// constructed there is no current instance yet; dependencies resolved in
// that window are staged and promoted to the finished instance, or
// discarded if construction fails.
//
// A minimal application:
//
//	c := guice.NewCollection()
//	err := c.AddModules(guice.NewModule("app",
//	    guice.BindSingleton(NewOrderService),
//	    guice.BindSessionScoped(NewCart),
//	    guice.RegisterUI("shop", NewShopUI),
//	    guice.RegisterView("orders", NewOrdersView),
//	    guice.RegisterView("oops", NewErrorView, guice.AsErrorView()),
//	))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	injector, err := c.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer injector.Close()
//
//	session, _ := injector.Sessions().Create()
//	ui, err := injector.CreateUI(session, "shop")
//
// Test doubles replace production bindings through Override modules:
//
//	c.AddModules(AppModule, guice.Override(guice.NewModule("fakes",
//	    guice.BindSingleton(NewFakeOrderService),
//	)))
package guice
