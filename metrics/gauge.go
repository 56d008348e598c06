package metrics

// Gauge holds a point-in-time value.
type Gauge interface {
	Metrics
	Update(value Value)
	UpdateWithDim(value Value, dimensions Dimension)
}

type gauge struct {
	name  string
	group string
}

func (g *gauge) Name() string   { return g.name }
func (g *gauge) Group() string  { return g.group }
func (g *gauge) Policy() Policy { return Policy_Set }

func (g *gauge) Update(v Value) {
	g.UpdateWithDim(v, nil)
}

func (g *gauge) UpdateWithDim(v Value, dimensions Dimension) {
	report(Record{metrics: g, value: v, dimensions: dimensions})
}
