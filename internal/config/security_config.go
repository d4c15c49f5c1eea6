package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
	SecurityAdmin                       // Access token with the admin role
)

// Route names registered on the HTTP router.
const (
	RouteCreateOrder       = "orders.create"
	RouteListMyOrders      = "orders.list"
	RouteGetOrder          = "orders.get"
	RouteUpdateOrderStatus = "orders.status"
	RouteConfirmOrder      = "orders.confirm"
	RouteStartDelivery     = "orders.start_delivery"
	RouteMarkReceived      = "orders.mark_received"
	RouteRequestReturn     = "orders.request_return"
	RouteCompleteOrder     = "orders.complete"
	RouteCancelOrder       = "orders.cancel"
	RouteListOrderDeposits = "orders.deposits"
	RouteCreateDeposit     = "deposits.create"
	RouteGetDeposit        = "deposits.get"
	RouteVNPayReturn       = "deposits.vnpay_return"
	RouteVNPayIPN          = "deposits.vnpay_ipn"
	RouteRefundDeposit     = "deposits.refund"
	RouteForfeitDeposit    = "deposits.forfeit"
	RouteProvisionUnits    = "products.provision_units"
	RouteProductStock      = "products.stock"
	RouteGetMe             = "users.me"
	RouteUpdateKYC         = "users.kyc"
	RouteListNotifications = "notifications.list"
	RouteMarkNotification  = "notifications.read"
	RouteHealth            = "health"
	RouteMetrics           = "metrics"
)

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Gateway callbacks and probes - Public
	RouteVNPayReturn:  SecurityPublic,
	RouteVNPayIPN:     SecurityPublic,
	RouteHealth:       SecurityPublic,
	RouteMetrics:      SecurityPublic,
	RouteProductStock: SecurityPublic,

	// Orders - Access Protected; role and ownership are checked by the service
	RouteCreateOrder:       SecurityAccess,
	RouteListMyOrders:      SecurityAccess,
	RouteGetOrder:          SecurityAccess,
	RouteUpdateOrderStatus: SecurityAccess,
	RouteConfirmOrder:      SecurityAccess,
	RouteStartDelivery:     SecurityAccess,
	RouteMarkReceived:      SecurityAccess,
	RouteRequestReturn:     SecurityAccess,
	RouteCompleteOrder:     SecurityAccess,
	RouteCancelOrder:       SecurityAccess,
	RouteListOrderDeposits: SecurityAccess,
	RouteProvisionUnits:    SecurityAccess,
	RouteGetMe:             SecurityAccess,
	RouteListNotifications: SecurityAccess,
	RouteMarkNotification:  SecurityAccess,

	// Deposits
	RouteCreateDeposit:  SecurityAccess,
	RouteGetDeposit:     SecurityAccess,
	RouteRefundDeposit:  SecurityAdmin,
	RouteForfeitDeposit: SecurityAdmin,

	// Admin
	RouteUpdateKYC: SecurityAdmin,
}

// GetSecurityLevel returns the security level for a route name.
// Unknown routes default to SecurityAccess.
func GetSecurityLevel(route string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[route]; ok {
		return level
	}
	return SecurityAccess
}
