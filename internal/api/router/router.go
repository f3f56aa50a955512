package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/lumina/internal/api/handlers/batch"
	"github.com/aliskhannn/lumina/internal/api/handlers/studio"
	"github.com/aliskhannn/lumina/internal/middleware"
)

// Setup registers the studio and batch routes.
func Setup(sh *studio.Handler, bh *batch.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.GET("/presets", sh.ListPresets) // selectable presets

	s := api.Group("/studio")
	s.POST("/image", sh.UploadImage)              // load image into the session
	s.GET("/adjustments", sh.GetAdjustments)      // session state
	s.PATCH("/adjustments", sh.UpdateAdjustments) // set fields
	s.POST("/reset", sh.Reset)                    // back to neutral
	s.POST("/preset", sh.SelectPreset)            // apply preset by id
	s.PUT("/intensity", sh.SetIntensity)          // re-blend active preset
	s.POST("/auto-enhance", sh.AutoEnhance)       // apply auto-portra
	s.POST("/auto-straighten", sh.AutoStraighten) // small random rotation
	s.GET("/preview", sh.Preview)                 // rendered PNG
	s.POST("/export", sh.Export)                  // PNG download

	b := api.Group("/batch")
	b.POST("/items", bh.AddItems)         // enqueue uploads
	b.GET("/items", bh.ListItems)         // queue and summary
	b.GET("/items/:id", bh.GetItem)       // one item
	b.DELETE("/items/:id", bh.RemoveItem) // remove one item
	b.DELETE("/items", bh.ClearItems)     // clear queue
	b.GET("/policy", bh.GetPolicy)        // batch toggles
	b.PUT("/policy", bh.SetPolicy)        // replace toggles
	b.POST("/run", bh.Run)                // start processing
	b.GET("/archive", bh.Archive)         // ZIP of finished items

	return r
}
