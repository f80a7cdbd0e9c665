package catalog

// Stock lure templates. Each body carries exactly one tracking URL
// placeholder and nothing recipient-specific, so rendered content cannot be
// used to derive another recipient's link.
var stockTemplates = []*Template{
	{
		ID:         "hr_benefits",
		Subject:    "URGENT: Update Your Benefits Selection by EOD",
		Difficulty: "medium",
		Body: `<html>
<body style="font-family: Arial, sans-serif;">
<p>Dear Employee,</p>

<p>Our HR system shows you have not yet updated your benefits selection for this year.</p>

<p><strong>Action Required:</strong> You must review and confirm your benefits by end of day today to avoid losing coverage.</p>

<p style="text-align: center; margin: 30px 0;">
    <a href="{tracking_url}" style="background-color: #0066cc; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-weight: bold;">
        UPDATE BENEFITS NOW
    </a>
</p>

<p>If you do not complete this by 5 PM today, you will be automatically enrolled in the minimum coverage plan.</p>

<p>Questions? Contact HR at hr@company.com</p>

<p>Best regards,<br>Human Resources Department</p>
</body>
</html>`,
	},
	{
		ID:         "it_password",
		Subject:    "Your password will expire in 24 hours",
		Difficulty: "hard",
		Body: `<html>
<body style="font-family: Arial, sans-serif;">
<p>Hello,</p>

<p>This is an automated reminder from IT Security.</p>

<p><strong style="color: red;">Your network password will expire in 24 hours.</strong></p>

<p>To prevent account lockout, please update your password immediately:</p>

<p style="text-align: center; margin: 30px 0;">
    <a href="{tracking_url}" style="background-color: #dc3545; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-weight: bold;">
        RESET PASSWORD
    </a>
</p>

<p>Failure to update will result in loss of access to:</p>
<ul>
    <li>Email</li>
    <li>Shared drives</li>
    <li>All company systems</li>
</ul>

<p>IT Support Team<br>support@company.com</p>
</body>
</html>`,
	},
	{
		ID:         "ceo_urgent",
		Subject:    "URGENT - Need you to handle this",
		Difficulty: "easy",
		Body: `<html>
<body style="font-family: Arial, sans-serif;">
<p>Hi,</p>

<p>I'm in meetings all day but need you to take care of something urgent.</p>

<p>Can you review this document and let me know your thoughts ASAP? It's time sensitive.</p>

<p style="text-align: center; margin: 30px 0;">
    <a href="{tracking_url}" style="background-color: #28a745; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-weight: bold;">
        VIEW DOCUMENT
    </a>
</p>

<p>Let me know once you've reviewed it.</p>

<p>Thanks,<br>John CEO</p>

<p style="font-size: 10px; color: #666;">Sent from my iPhone</p>
</body>
</html>`,
	},
	{
		ID:         "payroll_update",
		Subject:    "Action Required: Verify Your Direct Deposit Information",
		Difficulty: "medium",
		Body: `<html>
<body style="font-family: Arial, sans-serif;">
<p>Dear Team Member,</p>

<p>Due to a recent system migration, we need all employees to verify their direct deposit information.</p>

<p><strong>Important:</strong> If you do not verify by Friday, your next paycheck may be delayed.</p>

<p style="text-align: center; margin: 30px 0;">
    <a href="{tracking_url}" style="background-color: #0066cc; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-weight: bold;">
        VERIFY BANKING INFO
    </a>
</p>

<p>This only takes 2 minutes and ensures uninterrupted payment.</p>

<p>Thank you,<br>Payroll Department</p>
</body>
</html>`,
	},
}
