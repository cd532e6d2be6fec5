package triage

import (
	"fmt"
	"strings"

	"github.com/spacesedan/complaintflow/internal/models"
)

type actionKey struct {
	Category  models.Category
	Sentiment models.Sentiment
	Priority  models.Priority
}

const contactPlaceholder = "{contact}"

// Each template names the customer contact exactly once.
var actionTemplates = map[actionKey]string{
	{models.CategoryBilling, models.SentimentNegative, models.PriorityHigh}: "⚠️ URGENT ACTION REQUIRED:\n" +
		"1. Call {contact} within 2 hours\n" +
		"2. Review billing records immediately\n" +
		"3. Prepare refund/credit authorization\n" +
		"4. Escalate to Billing Manager\n" +
		"5. Document resolution for legal compliance",
	{models.CategoryBilling, models.SentimentNegative, models.PriorityMedium}: "💳 PRIORITY ACTION:\n" +
		"1. Email {contact} within 6 hours\n" +
		"2. Verify payment transaction details\n" +
		"3. Assign to Senior Billing Specialist\n" +
		"4. Provide itemized statement\n" +
		"5. Offer payment plan if applicable",
	{models.CategoryBilling, models.SentimentNeutral, models.PriorityLow}: "📋 STANDARD PROCEDURE:\n" +
		"1. Email {contact} within 48 hours\n" +
		"2. Send billing clarification document\n" +
		"3. Assign to Billing Support Team\n" +
		"4. Schedule follow-up call if needed",
	{models.CategoryBilling, models.SentimentPositive, models.PriorityLow}: "✅ ACKNOWLEDGMENT:\n" +
		"1. Thank {contact} for patience\n" +
		"2. Confirm billing issue resolved\n" +
		"3. Offer loyalty discount (10% next purchase)\n" +
		"4. Update customer satisfaction record",

	{models.CategoryDelivery, models.SentimentNegative, models.PriorityHigh}: "🚚 IMMEDIATE ESCALATION:\n" +
		"1. Contact {contact} within 1 hour\n" +
		"2. Track shipment with courier urgently\n" +
		"3. Offer expedited replacement shipping\n" +
		"4. Escalate to Logistics Manager\n" +
		"5. Provide tracking updates every 4 hours\n" +
		"6. Consider partial refund for inconvenience",
	{models.CategoryDelivery, models.SentimentNegative, models.PriorityMedium}: "📦 PRIORITY TRACKING:\n" +
		"1. Email {contact} within 6 hours\n" +
		"2. Request tracking update from courier\n" +
		"3. Assign to Delivery Resolution Team\n" +
		"4. Provide estimated delivery timeline\n" +
		"5. Offer shipping refund if delayed >3 days",
	{models.CategoryDelivery, models.SentimentNeutral, models.PriorityLow}: "📋 STANDARD FOLLOW-UP:\n" +
		"1. Email {contact} within 24 hours\n" +
		"2. Share current tracking status\n" +
		"3. Set delivery expectation window\n" +
		"4. Provide customer service contact",

	{models.CategoryTechnicalSupport, models.SentimentNegative, models.PriorityHigh}: "🔧 CRITICAL TECHNICAL ISSUE:\n" +
		"1. Assign senior engineer immediately\n" +
		"2. Call {contact} within 2 hours\n" +
		"3. Provide temporary workaround solution\n" +
		"4. Escalate to Tech Lead\n" +
		"5. Schedule screen-sharing session\n" +
		"6. Commit to resolution timeline",
	{models.CategoryTechnicalSupport, models.SentimentNegative, models.PriorityMedium}: "💻 TECHNICAL ASSISTANCE:\n" +
		"1. Email {contact} within 12 hours\n" +
		"2. Assign to Technical Support Specialist\n" +
		"3. Request system logs/screenshots\n" +
		"4. Provide troubleshooting guide\n" +
		"5. Schedule callback within 24 hours",
	{models.CategoryTechnicalSupport, models.SentimentNeutral, models.PriorityLow}: "💡 FEATURE FEEDBACK:\n" +
		"1. Thank {contact} for suggestion\n" +
		"2. Forward to Product Development Team\n" +
		"3. Add to feature request backlog\n" +
		"4. Provide timeline for consideration\n" +
		"5. Offer to join beta testing program",

	{models.CategoryProductQuality, models.SentimentNegative, models.PriorityHigh}: "📦 QUALITY ISSUE ESCALATION:\n" +
		"1. Contact {contact} immediately\n" +
		"2. Arrange free return shipping label\n" +
		"3. Offer replacement + 20% discount\n" +
		"4. Escalate to Quality Assurance Manager\n" +
		"5. Investigate batch/lot number\n" +
		"6. Document for supplier feedback",
	{models.CategoryProductQuality, models.SentimentNegative, models.PriorityMedium}: "🔍 QUALITY REVIEW:\n" +
		"1. Email {contact} within 8 hours\n" +
		"2. Request product photos/description\n" +
		"3. Offer exchange or refund options\n" +
		"4. Assign to Quality Control Team\n" +
		"5. Provide return instructions",

	{models.CategoryRefund, models.SentimentNegative, models.PriorityHigh}: "💰 URGENT REFUND PROCESSING:\n" +
		"1. Call {contact} within 1 hour\n" +
		"2. Verify refund eligibility immediately\n" +
		"3. Process refund within 24 hours\n" +
		"4. Escalate to Finance Manager if >$500\n" +
		"5. Send refund confirmation email\n" +
		"6. Offer future purchase credit (15% bonus)",
	{models.CategoryRefund, models.SentimentNegative, models.PriorityMedium}: "💵 REFUND REVIEW:\n" +
		"1. Email {contact} within 6 hours\n" +
		"2. Review return policy compliance\n" +
		"3. Request order details and reason\n" +
		"4. Process standard refund (3-5 business days)\n" +
		"5. Provide refund tracking information",
	{models.CategoryRefund, models.SentimentPositive, models.PriorityLow}: "✅ REFUND ACKNOWLEDGMENT:\n" +
		"1. Confirm refund received by {contact}\n" +
		"2. Request feedback on experience\n" +
		"3. Offer 10% discount on future purchase\n" +
		"4. Update customer satisfaction metrics",

	{models.CategoryServiceQuality, models.SentimentNegative, models.PriorityHigh}: "👤 SERVICE RECOVERY:\n" +
		"1. Manager to call {contact} within 2 hours\n" +
		"2. Review service interaction logs\n" +
		"3. Offer sincere apology + compensation\n" +
		"4. Retrain involved staff member\n" +
		"5. Assign dedicated account manager\n" +
		"6. Follow up within 48 hours",
	{models.CategoryServiceQuality, models.SentimentNegative, models.PriorityMedium}: "📞 SERVICE IMPROVEMENT:\n" +
		"1. Email {contact} within 8 hours\n" +
		"2. Assign to Customer Service Supervisor\n" +
		"3. Review service standards with team\n" +
		"4. Offer direct contact for future issues\n" +
		"5. Request detailed feedback",
	{models.CategoryServiceQuality, models.SentimentNeutral, models.PriorityLow}: "📋 FEEDBACK COLLECTION:\n" +
		"1. Thank {contact} for feedback\n" +
		"2. Forward to Service Training Department\n" +
		"3. Use for staff coaching session\n" +
		"4. Send follow-up satisfaction survey",

	{models.CategoryAccount, models.SentimentNegative, models.PriorityHigh}: "🔐 URGENT ACCOUNT ACCESS:\n" +
		"1. Contact {contact} immediately\n" +
		"2. Verify identity through security questions\n" +
		"3. Reset credentials within 1 hour\n" +
		"4. Escalate to IT Security Team\n" +
		"5. Enable two-factor authentication\n" +
		"6. Monitor account for suspicious activity",
	{models.CategoryAccount, models.SentimentNegative, models.PriorityMedium}: "🔑 ACCOUNT ASSISTANCE:\n" +
		"1. Email {contact} within 4 hours\n" +
		"2. Send password reset link\n" +
		"3. Provide account recovery guide\n" +
		"4. Assign to Account Support Specialist\n" +
		"5. Schedule verification callback",
}

type genericPlan struct {
	method       string
	timeframe    string
	escalation   string
	compensation string
}

var genericPlans = map[models.Priority]genericPlan{
	models.PriorityHigh: {
		method:       "Call",
		timeframe:    "2 hours",
		escalation:   "Escalate to department manager",
		compensation: "Offer immediate compensation/solution",
	},
	models.PriorityMedium: {
		method:       "Email",
		timeframe:    "12 hours",
		escalation:   "Assign to senior specialist",
		compensation: "Review compensation options",
	},
	models.PriorityLow: {
		method:       "Email",
		timeframe:    "48 hours",
		escalation:   "Route to standard queue",
		compensation: "Acknowledge and thank customer",
	},
}

// SuggestAction returns the playbook for an exact (category, sentiment,
// priority) match, or a generic plan for the priority.
func SuggestAction(category models.Category, sentiment models.Sentiment, priority models.Priority, contact string) string {
	if tmpl, ok := actionTemplates[actionKey{category, sentiment, priority}]; ok {
		return strings.Replace(tmpl, contactPlaceholder, contact, 1)
	}

	plan, ok := genericPlans[priority]
	if !ok {
		plan = genericPlans[models.PriorityMedium]
	}
	return fmt.Sprintf("ACTION PLAN:\n"+
		"1. %s %s within %s\n"+
		"2. %s\n"+
		"3. Assign to %s department\n"+
		"4. %s\n"+
		"5. Document resolution and follow up",
		plan.method, contact, plan.timeframe,
		plan.escalation,
		category,
		plan.compensation)
}

// hasExactAction reports whether a tailored playbook exists for the key.
func hasExactAction(category models.Category, sentiment models.Sentiment, priority models.Priority) bool {
	_, ok := actionTemplates[actionKey{category, sentiment, priority}]
	return ok
}
