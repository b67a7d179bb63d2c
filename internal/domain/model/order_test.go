package model_test

import (
	"testing"
	"time"

	model "github.com/okian/ordertriage/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestOrder(t *testing.T) {
	convey.Convey("Given an Order", t, func() {
		convey.Convey("When it has no escalation timestamp", func() {
			o := model.Order{ID: "1", CreatedAt: time.Now()}

			convey.Convey("Then it is not escalated", func() {
				convey.So(o.Escalated(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When it carries an escalation timestamp", func() {
			o := model.Order{ID: "1", EscalatedAt: time.Now()}

			convey.Convey("Then it is escalated", func() {
				convey.So(o.Escalated(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When checking workflow states", func() {
			convey.Convey("Then final states close the order regardless of case", func() {
				for _, s := range []string{"aprobado", "RECHAZADO", " cancelado "} {
					convey.So(model.Order{Status: s}.Closed(), convey.ShouldBeTrue)
				}
				for _, s := range []string{"", "pendiente", "escalado"} {
					convey.So(model.Order{Status: s}.Closed(), convey.ShouldBeFalse)
				}
			})
		})
	})
}

func TestUpdateKind(t *testing.T) {
	convey.Convey("Given push message kinds", t, func() {
		convey.Convey("Then only order messages patch the board", func() {
			convey.So(model.UpdateNewOrder.CarriesOrder(), convey.ShouldBeTrue)
			convey.So(model.UpdateOrderChanged.CarriesOrder(), convey.ShouldBeTrue)
			convey.So(model.UpdateSystem.CarriesOrder(), convey.ShouldBeFalse)
			convey.So(model.UpdateEmergency.CarriesOrder(), convey.ShouldBeFalse)
		})
	})
}
