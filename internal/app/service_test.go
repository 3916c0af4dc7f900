package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/okian/attrib/internal/adapters/repository"
	service "github.com/okian/attrib/internal/app"
	"github.com/okian/attrib/internal/domain/journey"
	"github.com/okian/attrib/internal/domain/model"
	"github.com/okian/attrib/internal/domain/types"
	"github.com/okian/attrib/internal/learn"
	"github.com/okian/attrib/internal/training"
	"github.com/okian/attrib/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

var anchorTime = time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC)

// ownerArtifacts scores Wi-Fi co-location up and an alibi down.
func ownerArtifacts() *training.OwnerArtifacts {
	return &training.OwnerArtifacts{
		Scaler: &learn.Scaler{Mean: make([]float64, 6), Scale: []float64{1, 1, 1, 1, 1, 1}},
		Model:  &learn.Logistic{Weights: []float64{0, 2, 1, -3, 0, 3}, Bias: -1, Labels: []int{0, 1}},
	}
}

// locationArtifacts routes A to C mostly through B, sometimes through D,
// with a habit model that has no opinion.
func locationArtifacts() *training.LocationArtifacts {
	return &training.LocationArtifacts{
		Graph: journey.Graph{
			"A": {"B": 8, "D": 2},
			"B": {"C": 10},
			"D": {"C": 10},
		},
		Scaler: &learn.Scaler{Mean: make([]float64, 4), Scale: []float64{1, 1, 1, 1}},
		Model: &learn.Softmax{
			Weights: [][]float64{make([]float64, 4), make([]float64, 4), make([]float64, 4)},
			Bias:    make([]float64, 3),
			Labels:  []int{0, 1, 2},
		},
		Encoder: (&learn.LabelEncoder{Labels: []string{"B", "C", "D"}}).Index(),
	}
}

func ownerRequest() types.OwnerRequest {
	return types.OwnerRequest{
		AnchorEvents: []model.AnchorEvent{{ID: "E1", LocationID: "LAB", Timestamp: model.At(anchorTime)}},
		CandidateUsers: []model.Subject{
			{ID: "S2", FullName: "Bo"},
			{ID: "S1", FullName: "Ana", ExternalID: "X-1"},
		},
		AllEvidence: model.Bundle{
			WifiLogs: []model.WifiLog{{
				AccessPointID: "LAB",
				Timestamp:     model.At(anchorTime.Add(10 * time.Second)),
				Device:        model.Owner{UserID: "S1"},
			}},
		},
	}
}

func locationRequest(before string) types.LocationRequest {
	return types.LocationRequest{
		StartTime: model.At(anchorTime),
		AllLocations: []model.Location{
			{ID: "L4", Name: "D"},
			{ID: "L2", Name: "B", Building: "North"},
		},
		LocationBefore: types.LocationRef{Name: before},
		LocationAfter:  types.LocationRef{Name: "C"},
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a service without artifacts", t, func() {
		svc := service.New()

		Convey("Then both endpoints report the model as unavailable", func() {
			_, err := svc.PredictOwner(context.Background(), ownerRequest())
			So(errors.Is(err, service.ErrModelUnavailable), ShouldBeTrue)
			So(err.Error(), ShouldEqual, service.OwnerUnavailableMessage)

			_, err = svc.PredictLocation(context.Background(), locationRequest("A"))
			So(errors.Is(err, service.ErrModelUnavailable), ShouldBeTrue)
			So(err.Error(), ShouldEqual, service.LocationUnavailableMessage)
		})

		Convey("Then stats show nothing enabled", func() {
			stats := svc.GetStats()
			So(stats["ownerEnabled"], ShouldBeFalse)
			So(stats["locationEnabled"], ShouldBeFalse)
		})
	})

	Convey("Given incomplete artifacts", t, func() {
		svc := service.New(service.WithOwnerArtifacts(&training.OwnerArtifacts{}, "v1"))

		Convey("Then they are ignored", func() {
			So(svc.GetStats()["ownerEnabled"], ShouldBeFalse)
		})
	})
}

func TestService_PredictOwner(t *testing.T) {
	Convey("Given a service with an owner model", t, func() {
		svc := service.New(service.WithOwnerArtifacts(ownerArtifacts(), "v1"))
		ctx := context.Background()

		Convey("When a candidate's device joined the anchor's access point", func() {
			resp, err := svc.PredictOwner(ctx, ownerRequest())
			So(err, ShouldBeNil)

			Convey("Then that candidate ranks first with Wi-Fi evidence", func() {
				So(resp.Predictions, ShouldHaveLength, 2)
				first := resp.Predictions[0]
				So(first.User, ShouldResemble, model.SubjectRef{ID: "S1", FullName: "Ana", ExternalID: "X-1"})
				So(first.Score, ShouldAlmostEqual, 0.7310585786, 1e-9)
				So(first.Evidence, ShouldResemble, []string{"A known device connected to a nearby Wi-Fi AP within 10 seconds."})
			})

			Convey("Then the other candidate has no strong evidence", func() {
				second := resp.Predictions[1]
				So(second.User.ID, ShouldEqual, model.ID("S2"))
				So(second.Score, ShouldBeLessThan, resp.Predictions[0].Score)
				So(second.Evidence, ShouldResemble, []string{"No strong contextual evidence found to link this user."})
			})
		})

		Convey("When there are no candidates", func() {
			req := ownerRequest()
			req.CandidateUsers = nil
			resp, err := svc.PredictOwner(ctx, req)

			Convey("Then an empty, non-nil list is returned", func() {
				So(err, ShouldBeNil)
				So(resp.Predictions, ShouldNotBeNil)
				So(resp.Predictions, ShouldBeEmpty)
			})
		})

		Convey("When every anchor is unusable", func() {
			req := ownerRequest()
			req.AnchorEvents[0].Timestamp = model.ParseTimestamp("yesterday")
			resp, err := svc.PredictOwner(ctx, req)

			Convey("Then candidates are still ranked without evidence", func() {
				So(err, ShouldBeNil)
				So(resp.Predictions, ShouldHaveLength, 2)
				So(resp.Predictions[0].Score, ShouldEqual, resp.Predictions[1].Score)
				So(resp.Predictions[0].User.ID, ShouldEqual, model.ID("S2"))
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.PredictOwner(cctx, ownerRequest())
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestService_PredictLocation(t *testing.T) {
	Convey("Given a service with location artifacts", t, func() {
		svc := service.New(service.WithLocationArtifacts(locationArtifacts(), "v2"))
		ctx := context.Background()

		Convey("When the journey graph knows the route", func() {
			resp, err := svc.PredictLocation(ctx, locationRequest("A"))
			So(err, ShouldBeNil)

			Convey("Then the busiest waypoint is returned as given by the caller", func() {
				So(resp.Prediction, ShouldResemble, &model.Location{ID: "L2", Name: "B", Building: "North"})
				So(resp.Reason, ShouldEqual, "The most likely path from 'A' to 'C' is via this location. Model confidence: 56%.")
			})
		})

		Convey("When history adds a habit signal", func() {
			req := locationRequest("A")
			req.HistoricalActivity = []model.Activity{{LocationID: "L4", Timestamp: model.At(anchorTime.Add(-24 * time.Hour))}}
			resp, err := svc.PredictLocation(ctx, req)

			Convey("Then the habit share raises the confidence", func() {
				So(err, ShouldBeNil)
				So(resp.Prediction.Name, ShouldEqual, "B")
				So(resp.Reason, ShouldEndWith, "Model confidence: 76%.")
			})
		})

		Convey("When the starting location was never seen", func() {
			resp, err := svc.PredictLocation(ctx, locationRequest("Z"))

			Convey("Then no prediction is made", func() {
				So(err, ShouldBeNil)
				So(resp.Prediction, ShouldBeNil)
				So(resp.Reason, ShouldEqual, service.NoConfidentLocationReason)
			})
		})

		Convey("When only habit counts and two waypoints tie", func() {
			svc := service.New(
				service.WithLocationArtifacts(locationArtifacts(), "v2"),
				service.WithBlendWeights(0, 1),
			)
			req := locationRequest("A")
			req.HistoricalActivity = []model.Activity{{LocationID: "L2", Timestamp: model.At(anchorTime)}}
			resp, err := svc.PredictLocation(ctx, req)

			Convey("Then the lexically smallest name wins", func() {
				So(err, ShouldBeNil)
				So(resp.Prediction.ID, ShouldEqual, model.ID("L2"))
				So(resp.Reason, ShouldEndWith, "Model confidence: 67%.")
			})
		})

		Convey("When the configured blend is invalid", func() {
			for _, w := range [][2]float64{{-1, 2}, {0, 0}} {
				svc := service.New(
					service.WithLocationArtifacts(locationArtifacts(), "v2"),
					service.WithBlendWeights(w[0], w[1]),
				)
				resp, err := svc.PredictLocation(ctx, locationRequest("A"))

				So(err, ShouldBeNil)
				So(resp.Reason, ShouldEndWith, "Model confidence: 56%.")
				So(svc.GetStats()["journeyWeight"], ShouldEqual, 0.7)
				So(svc.GetStats()["habitWeight"], ShouldEqual, 0.3)
			}
		})

		Convey("When a valid blend is configured", func() {
			svc := service.New(
				service.WithLocationArtifacts(locationArtifacts(), "v2"),
				service.WithBlendWeights(0, 1),
			)

			Convey("Then stats report the weights in use", func() {
				So(svc.GetStats()["journeyWeight"], ShouldEqual, 0.0)
				So(svc.GetStats()["habitWeight"], ShouldEqual, 1.0)
			})
		})

		Convey("Then stats describe the graph", func() {
			stats := svc.GetStats()
			So(stats["locationEnabled"], ShouldBeTrue)
			So(stats["locationVersion"], ShouldEqual, "v2")
			So(stats["graphNodes"], ShouldEqual, 4)
			So(stats["graphEdges"], ShouldEqual, 4)
			So(stats["habitClasses"], ShouldEqual, 3)
		})
	})
}

func TestService_Load(t *testing.T) {
	Convey("Given an artifact store", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, ":memory:")
		So(err, ShouldBeNil)
		defer store.Close()

		Convey("When nothing was trained", func() {
			svc, err := service.Load(ctx, store)

			Convey("Then the service starts with both endpoints disabled", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["ownerEnabled"], ShouldBeFalse)
				So(stats["locationEnabled"], ShouldBeFalse)
			})
		})

		Convey("When every artifact was saved", func() {
			payloads, err := training.Encode(ownerArtifacts(), locationArtifacts())
			So(err, ShouldBeNil)
			version, err := store.SaveAll(ctx, payloads)
			So(err, ShouldBeNil)

			svc, err := service.Load(ctx, store)
			So(err, ShouldBeNil)

			Convey("Then both endpoints serve the saved version", func() {
				stats := svc.GetStats()
				So(stats["ownerVersion"], ShouldEqual, version)
				So(stats["locationVersion"], ShouldEqual, version)

				resp, err := svc.PredictOwner(ctx, ownerRequest())
				So(err, ShouldBeNil)
				So(resp.Predictions[0].User.ID, ShouldEqual, model.ID("S1"))

				loc, err := svc.PredictLocation(ctx, locationRequest("A"))
				So(err, ShouldBeNil)
				So(loc.Prediction.Name, ShouldEqual, "B")
			})
		})

		Convey("When only the owner artifacts were saved", func() {
			payloads, err := training.Encode(ownerArtifacts(), nil)
			So(err, ShouldBeNil)
			_, err = store.SaveAll(ctx, payloads)
			So(err, ShouldBeNil)

			svc, err := service.Load(ctx, store)
			So(err, ShouldBeNil)

			Convey("Then only the owner endpoint is enabled", func() {
				So(svc.GetStats()["ownerEnabled"], ShouldBeTrue)
				So(svc.GetStats()["locationEnabled"], ShouldBeFalse)
			})
		})

		Convey("When a payload is corrupt", func() {
			_, err := store.SaveAll(ctx, map[string][]byte{repository.OwnerModel: []byte("{"), repository.OwnerScaler: []byte("{}")})
			So(err, ShouldBeNil)
			_, err = service.Load(ctx, store)

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeFalse)
			})
		})
	})
}
