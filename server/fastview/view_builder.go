package fastview

import (
	"context"
	"errors"
	"fmt"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilder assembles the views of one page over a shared stream. Each item of the
// source is converted once into a view-model, every view gets its own copy of it, and
// the views' ele-updates come back merged onto a single channel.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source   <-chan DataModel
	toModel  func(DataModel) ViewModel
	builders []ViewBuilderFunc[ViewModel]
	// A nil done never fires; the pipeline then ends when source closes.
	done <-chan struct{}
}

// ViewBuilderFunc builds a view from its view-model channel and the done channel
// that tears it down.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{}
}

// WithModel sets the source stream and its conversion to the views' model.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	source <-chan DataModel,
	toModel func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = source
	vb.toModel = toModel
	return vb
}

// WithView appends a view. Build returns the views in the order they were appended,
// which is also the order the page lays them out in.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	build ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.builders = append(vb.builders, build)
	return vb
}

// WithContext stops every stage of the pipeline once ctx is done.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

var (
	ErrNoViews = errors.New("no views to build: WithView must be called")
	ErrNoModel = errors.New("no model specified: WithModel must be called")
	ErrNilView = errors.New("view builder returned no view")
)

// Build wires source -> view-model -> one copy per view, and merges the views' output.
// The merged channel closes once every view has closed its updates, or when done fires.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() (
	views []ViewComponent,
	updates <-chan []EleUpdate,
	err error,
) {
	if len(vb.builders) == 0 {
		return nil, nil, ErrNoViews
	}
	if vb.toModel == nil {
		return nil, nil, ErrNoModel
	}

	models := channerics.Broadcast(
		vb.done,
		channerics.Convert(vb.done, vb.source, vb.toModel),
		len(vb.builders))

	views = make([]ViewComponent, 0, len(vb.builders))
	outputs := make([]<-chan []EleUpdate, 0, len(vb.builders))
	for i, build := range vb.builders {
		view := build(vb.done, models[i])
		if view == nil {
			return nil, nil, fmt.Errorf("%w: view %d", ErrNilView, i)
		}
		views = append(views, view)
		outputs = append(outputs, view.Updates())
	}

	updates = channerics.Merge(vb.done, outputs...)
	return
}
