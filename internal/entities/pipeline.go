package entities

import "github.com/brpainel/painel-gateway/internal/status"

// DocumentPipeline is the fixed stage order every document-production order
// moves through. Defined once for the whole order type, never per instance.
var DocumentPipeline = status.MustNew(
	status.Stage{Key: string(OrderStatusPending), Label: "Pagamento pendente", Position: 0},
	status.Stage{Key: string(OrderStatusPaid), Label: "Pagamento confirmado", Position: 1},
	status.Stage{Key: string(OrderStatusProcessing), Label: "Em produção", Position: 2},
	status.Stage{Key: string(OrderStatusDelivered), Label: "Entregue", Position: 3},
)
