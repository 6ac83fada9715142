package subscription

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/registry"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

type stubTask struct {
	task.Base
}

func (t *stubTask) Execute(timing.Tick)           {}
func (t *stubTask) RegisterTask(task.Registrar)   {}
func (t *stubTask) UnregisterTask(task.Registrar) {}

var errBus = errors.New("bus off")

var _ = Describe("Manager", func() {
	var (
		ctrl     *gomock.Controller
		a, b, c  *MockAdapter
		adapters []transport.Adapter
		m        *Manager
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		a = NewMockAdapter(ctrl)
		b = NewMockAdapter(ctrl)
		c = NewMockAdapter(ctrl)
		a.EXPECT().Name().Return("A").AnyTimes()
		b.EXPECT().Name().Return("B").AnyTimes()
		c.EXPECT().Name().Return("C").AnyTimes()
		adapters = []transport.Adapter{a, b, c}
		m = NewManager(logging.Discard(), DefaultTransferIDTimeout)
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	It("should subscribe exactly once per port and adapter", func() {
		for _, mock := range []*MockAdapter{a, b, c} {
			mock.EXPECT().
				Subscribe(cyphal.KindMessage, cyphal.PortHeartbeat, 12, DefaultTransferIDTimeout).
				Return(nil).Times(1)
			mock.EXPECT().
				Subscribe(cyphal.KindMessage, cyphal.PortHeapStatus, 64, DefaultTransferIDTimeout).
				Return(nil).Times(1)
		}

		err := m.Subscribe(cyphal.KindMessage,
			[]cyphal.PortID{cyphal.PortHeartbeat, cyphal.PortHeapStatus}, adapters)

		Expect(err).ToNot(HaveOccurred())
		Expect(m.Active()).To(Equal(6))
	})

	It("should skip ports missing from the table", func() {
		Expect(m.Subscribe(cyphal.KindMessage, []cyphal.PortID{1234}, adapters)).To(Succeed())
		Expect(m.Active()).To(BeZero())
	})

	It("should keep going when one adapter fails", func() {
		a.EXPECT().Subscribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errBus)
		b.EXPECT().Subscribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		c.EXPECT().Subscribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		err := m.Subscribe(cyphal.KindMessage, []cyphal.PortID{cyphal.PortHeartbeat}, adapters)

		Expect(errors.Is(err, errBus)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("on A"))
		Expect(m.IsActive(cyphal.KindMessage, cyphal.PortHeartbeat, a)).To(BeFalse())
		Expect(m.IsActive(cyphal.KindMessage, cyphal.PortHeartbeat, b)).To(BeTrue())
		Expect(m.IsActive(cyphal.KindMessage, cyphal.PortHeartbeat, c)).To(BeTrue())
		Expect(m.Failures()).To(Equal(uint64(1)))
	})

	It("should unsubscribe every adapter", func() {
		for _, mock := range []*MockAdapter{a, b, c} {
			mock.EXPECT().Unsubscribe(cyphal.KindRequest, cyphal.PortGetInfo).Return(nil)
		}

		Expect(m.Unsubscribe(cyphal.KindRequest, []cyphal.PortID{cyphal.PortGetInfo}, adapters)).
			To(Succeed())
	})

	Context("with a registration directory", func() {
		var (
			reg *registry.Manager
			t   *stubTask
		)

		BeforeEach(func() {
			reg = registry.NewManager(logging.Discard())
			t = &stubTask{Base: task.NewBase("Stub", 0, 0)}
			reg.Subscribe(cyphal.PortHeartbeat, t)
			reg.AddServer(cyphal.PortGetInfo, t)
			reg.AddClient(cyphal.PortExecuteCommand, t)
			adapters = adapters[:1]
		})

		It("should subscribe subscriptions, servers and clients", func() {
			a.EXPECT().Subscribe(cyphal.KindMessage, cyphal.PortHeartbeat, 12, gomock.Any())
			a.EXPECT().Subscribe(cyphal.KindRequest, cyphal.PortGetInfo, 0, gomock.Any())
			a.EXPECT().Subscribe(cyphal.KindResponse, cyphal.PortExecuteCommand, 48, gomock.Any())

			Expect(m.SubscribeAll(reg, adapters)).To(Succeed())
			Expect(m.Active()).To(Equal(3))
		})

		It("should follow registration changes", func() {
			a.EXPECT().Subscribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil).Times(3)
			Expect(m.Sync(reg, adapters)).To(Succeed())

			Expect(m.Sync(reg, adapters)).To(Succeed())

			reg.Unsubscribe(cyphal.PortHeartbeat, t)
			reg.Subscribe(cyphal.PortHeapStatus, t)

			gomock.InOrder(
				a.EXPECT().Subscribe(cyphal.KindMessage, cyphal.PortHeapStatus, 64, gomock.Any()),
				a.EXPECT().Unsubscribe(cyphal.KindMessage, cyphal.PortHeartbeat),
			)
			Expect(m.Sync(reg, adapters)).To(Succeed())
			Expect(m.IsActive(cyphal.KindMessage, cyphal.PortHeartbeat, a)).To(BeFalse())
			Expect(m.IsActive(cyphal.KindMessage, cyphal.PortHeapStatus, a)).To(BeTrue())
		})

		It("should retry a failed subscription on the next sync", func() {
			a.EXPECT().Subscribe(cyphal.KindMessage, gomock.Any(), gomock.Any(), gomock.Any()).
				Return(errBus)
			a.EXPECT().Subscribe(cyphal.KindRequest, gomock.Any(), gomock.Any(), gomock.Any())
			a.EXPECT().Subscribe(cyphal.KindResponse, gomock.Any(), gomock.Any(), gomock.Any())
			Expect(m.Sync(reg, adapters)).ToNot(Succeed())

			a.EXPECT().Subscribe(cyphal.KindMessage, cyphal.PortHeartbeat, 12, gomock.Any())
			Expect(m.Sync(reg, adapters)).To(Succeed())
			Expect(m.Active()).To(Equal(3))
		})
	})
})
