package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grand-thief-cash/voltify/infra/application/components/http_server"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	bizConsts "github.com/grand-thief-cash/voltify/internal/consts"
)

func init() {
	http_server.RegisterRoutes(func(r chi.Router, c *core.Container) error {
		comp, err := c.Resolve(bizConsts.COMP_CTRL_AUTH)
		if err != nil {
			return fmt.Errorf("resolve auth controller: %w", err)
		}
		authCtrl, ok := comp.(*AuthController)
		if !ok {
			return fmt.Errorf("auth controller type assertion failed")
		}
		comp, err = c.Resolve(bizConsts.COMP_CTRL_TASK)
		if err != nil {
			return fmt.Errorf("resolve task controller: %w", err)
		}
		taskCtrl, ok := comp.(*TaskController)
		if !ok {
			return fmt.Errorf("task controller type assertion failed")
		}
		comp, err = c.Resolve(bizConsts.COMP_CTRL_DIGEST)
		if err != nil {
			return fmt.Errorf("resolve digest controller: %w", err)
		}
		digestCtrl, ok := comp.(*DigestController)
		if !ok {
			return fmt.Errorf("digest controller type assertion failed")
		}
		mount(r, authCtrl, taskCtrl, digestCtrl)
		return nil
	})
}

func mount(r chi.Router, authCtrl *AuthController, taskCtrl *TaskController, digestCtrl *DigestController) {
	r.Post("/register", authCtrl.register)
	r.Post("/login", authCtrl.login)
	r.Post("/register_form", authCtrl.register)
	r.Post("/login_form", authCtrl.login)
	// 只接受 POST, 避免跨站 GET 注销
	r.Post("/logout", authCtrl.logout)

	r.Group(func(r chi.Router) {
		r.Use(requireOwner(authCtrl.Auth))

		r.Route("/api/v1/tasks", func(r chi.Router) {
			r.Get("/", taskCtrl.listTasks)
			r.Post("/", taskCtrl.createTask)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", withID(taskCtrl.getTask))
				r.Put("/", withID(taskCtrl.updateTask))
				r.Delete("/", withID(taskCtrl.deleteTask))
				r.Patch("/completion", withID(taskCtrl.setCompletion))
				r.Post("/description/suggest", withID(taskCtrl.suggestDescription))
				r.Put("/description", withID(taskCtrl.applyDescription))
			})
		})
		r.Post("/api/v1/digest/run", digestCtrl.runDigest)
	})
}

func withID(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, chi.URLParam(r, "id"))
	}
}
