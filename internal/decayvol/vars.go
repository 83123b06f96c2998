package decayvol

var (
	Debug = false // set to true for debug level logs
	// Compile time checks to ensure that both volume strategies implement Intersector
	_ Intersector           = (*BoxIntersector)(nil)
	_ Intersector           = (*MarchIntersector)(nil)
	_ rescalable            = (*BoxIntersector)(nil)
	_ rescalable            = (*MarchIntersector)(nil)
	_ Navigator             = (*SDFNavigator)(nil)
	_ VertexRegenerator     = (*Source)(nil)
	_ rescalableRegenerator = (*Source)(nil)
)
